package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"lrpsolve/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS lrp_runs (
    id            uuid PRIMARY KEY,
    mode          text NOT NULL,
    created_at    timestamptz NOT NULL DEFAULT now(),
    scenarios     jsonb NOT NULL,
    objective     double precision NOT NULL,
    opening_cost  double precision NOT NULL,
    open_depots   jsonb NOT NULL,
    per_scenario  jsonb,
    bound         integer NOT NULL DEFAULT 0,
    enumerated    integer NOT NULL DEFAULT 0,
    elapsed_ms    bigint NOT NULL DEFAULT 0,
    output_path   text
);
CREATE INDEX IF NOT EXISTS lrp_runs_created_idx ON lrp_runs (created_at, id);
`

const runColumns = `id::text, mode, created_at, scenarios, objective, opening_cost, open_depots, per_scenario, bound, enumerated, elapsed_ms, output_path`

type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the run table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) SaveSolution(ctx context.Context, run model.RunSummary) (model.RunSummary, error) {
	run.Mode = ModeSolve
	return p.save(ctx, run)
}

func (p *Postgres) SaveValidation(ctx context.Context, run model.RunSummary) (model.RunSummary, error) {
	run.Mode = ModeValidate
	return p.save(ctx, run)
}

func (p *Postgres) save(ctx context.Context, run model.RunSummary) (model.RunSummary, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	created := time.Now().UTC()
	if run.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, run.CreatedAt)
		if err != nil {
			return model.RunSummary{}, fmt.Errorf("save run: createdAt: %w", err)
		}
		created = t
	}
	run.CreatedAt = created.Format(time.RFC3339)
	_, err := p.db.ExecContext(ctx, `INSERT INTO lrp_runs (id, mode, created_at, scenarios, objective, opening_cost, open_depots, per_scenario, bound, enumerated, elapsed_ms, output_path)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		run.ID, run.Mode, created, jsonText(run.Scenarios), run.Objective, run.OpeningCost,
		jsonText(run.OpenDepots), nullableJSON(run.PerScenario), run.Bound, run.Enumerated, run.ElapsedMs, nullIfEmpty(run.OutputPath))
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return run, nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.RunSummary, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.RunSummary{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM lrp_runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunSummary{}, ErrNotFound
	}
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

func (p *Postgres) GetSolution(ctx context.Context, id string) (model.SolutionFile, error) {
	r, err := p.GetRun(ctx, id)
	if err != nil {
		return model.SolutionFile{}, err
	}
	if r.Mode != ModeSolve {
		return model.SolutionFile{}, ErrNotFound
	}
	return solutionOf(r), nil
}

func (p *Postgres) ListRuns(ctx context.Context, mode, cursor string, limit int) ([]model.RunSummary, string, error) {
	limit = clampLimit(limit)
	q := `SELECT ` + runColumns + ` FROM lrp_runs WHERE ($1 = '' OR mode = $1)`
	args := []any{mode}
	if cursor != "" {
		q += ` AND (created_at, id) > (SELECT created_at, id FROM lrp_runs WHERE id::text = $2)`
		args = append(args, cursor)
	}
	q += fmt.Sprintf(` ORDER BY created_at, id LIMIT %d`, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []model.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list runs: %w", err)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.RunSummary, error) {
	var (
		r                          model.RunSummary
		created                    time.Time
		scenarios, depots, perScen []byte
		output                     sql.NullString
	)
	if err := s.Scan(&r.ID, &r.Mode, &created, &scenarios, &r.Objective, &r.OpeningCost,
		&depots, &perScen, &r.Bound, &r.Enumerated, &r.ElapsedMs, &output); err != nil {
		return r, err
	}
	r.CreatedAt = created.UTC().Format(time.RFC3339)
	r.OutputPath = output.String
	if err := decodeRunJSON(&r, scenarios, depots, perScen); err != nil {
		return r, err
	}
	return r, nil
}

func decodeRunJSON(r *model.RunSummary, scenarios, depots, perScen []byte) error {
	if err := json.Unmarshal(scenarios, &r.Scenarios); err != nil {
		return fmt.Errorf("scenarios: %w", err)
	}
	if err := json.Unmarshal(depots, &r.OpenDepots); err != nil {
		return fmt.Errorf("open_depots: %w", err)
	}
	if len(perScen) > 0 {
		if err := json.Unmarshal(perScen, &r.PerScenario); err != nil {
			return fmt.Errorf("per_scenario: %w", err)
		}
	}
	return nil
}

func jsonText(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func nullableJSON[T any](v []T) any {
	if len(v) == 0 {
		return nil
	}
	return jsonText(v)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
