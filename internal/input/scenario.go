// Package input loads scenario and solution files and binds every scenario to
// a routing model.
package input

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"lrpsolve/internal/lrp"
	"lrpsolve/internal/model"
	"lrpsolve/internal/opt"
)

// FileError reports one file that could not be used.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Loaded is the outcome of loading a batch of scenario files.
type Loaded struct {
	Catalog   *lrp.Catalog
	Scenarios []*lrp.Scenario // load order, skipped files omitted
	Skipped   []*FileError
}

// ReadScenarioFile reads and validates one scenario document.
func ReadScenarioFile(path string) (model.ScenarioFile, error) {
	var f model.ScenarioFile
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, fmt.Errorf("read scenario %q: %w", path, lrp.ErrInputNotFound)
		}
		return f, fmt.Errorf("read scenario %q: %w", path, err)
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("decode scenario %q: %w: %v", path, lrp.ErrInputMalformed, err)
	}
	if err := validateScenario(f); err != nil {
		return f, fmt.Errorf("scenario %q: %w", path, err)
	}
	return f, nil
}

func validateScenario(f model.ScenarioFile) error {
	if len(f.Depots) == 0 {
		return fmt.Errorf("no depots: %w", lrp.ErrInputMalformed)
	}
	if f.VehicleCapacity <= 0 {
		return fmt.Errorf("vehicleCapacity must be > 0 (got %d): %w", f.VehicleCapacity, lrp.ErrInputMalformed)
	}
	if f.RouteCost < 0 {
		return fmt.Errorf("routeCost must be >= 0 (got %f): %w", f.RouteCost, lrp.ErrInputMalformed)
	}
	if len(f.Customers) == 0 {
		return fmt.Errorf("no customers: %w", lrp.ErrInputMalformed)
	}
	for i, d := range f.Depots {
		if d.Capacity <= 0 || d.Costs < 0 {
			return fmt.Errorf("depot %d: capacity %d, costs %f: %w", i, d.Capacity, d.Costs, lrp.ErrInputMalformed)
		}
	}
	for i, c := range f.Customers {
		if c.Demand < 0 || c.Demand > f.VehicleCapacity {
			return fmt.Errorf("customer %d: demand %d outside [0, %d]: %w", i, c.Demand, f.VehicleCapacity, lrp.ErrInputMalformed)
		}
	}
	return nil
}

// CatalogFrom builds the depot catalog declared by a scenario file.
func CatalogFrom(f model.ScenarioFile) (*lrp.Catalog, error) {
	sites := make([]lrp.DepotSite, len(f.Depots))
	for i, d := range f.Depots {
		sites[i] = lrp.DepotSite{ID: i, X: d.X, Y: d.Y, OpeningCost: d.Costs, Capacity: d.Capacity}
	}
	return lrp.NewCatalog(sites)
}

// NewScenario binds a scenario file to a fresh routing model.
func NewScenario(name string, f model.ScenarioFile, seed int64) (*lrp.Scenario, error) {
	customers := make([]opt.Customer, len(f.Customers))
	for i, c := range f.Customers {
		customers[i] = opt.Customer{Point: opt.Point{X: c.X, Y: c.Y}, Demand: c.Demand}
	}
	m, err := opt.NewModel(customers, f.VehicleCapacity, opt.Params{RouteCost: f.RouteCost, Seed: seed})
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w: %v", name, lrp.ErrInputMalformed, err)
	}
	return &lrp.Scenario{Name: name, Model: &RoutingModel{Model: m}}, nil
}

type parsed struct {
	file model.ScenarioFile
	err  error
}

// LoadScenarios reads scenario files concurrently. A file that is missing,
// malformed or whose catalog differs from the first usable file is reported in
// Skipped and left out. The catalog comes from the first usable file in
// argument order. Scenario i is seeded with seed+i.
func LoadScenarios(ctx context.Context, paths []string, seed int64, log *slog.Logger) (*Loaded, error) {
	if log == nil {
		log = slog.Default()
	}
	results := make([]parsed, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := ReadScenarioFile(p)
			results[i] = parsed{file: f, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}

	out := &Loaded{}
	skip := func(path string, err error) {
		log.Warn("scenario skipped", "path", path, "err", err)
		out.Skipped = append(out.Skipped, &FileError{Path: path, Err: err})
	}
	for i, r := range results {
		path := paths[i]
		if r.err != nil {
			skip(path, r.err)
			continue
		}
		cat, err := CatalogFrom(r.file)
		if err != nil {
			skip(path, err)
			continue
		}
		if out.Catalog == nil {
			out.Catalog = cat
		} else if !out.Catalog.Equal(cat) {
			skip(path, fmt.Errorf("depot catalog differs from the first scenario: %w", lrp.ErrInputMalformed))
			continue
		}
		sc, err := NewScenario(filepath.Base(path), r.file, seed+int64(i))
		if err != nil {
			skip(path, err)
			continue
		}
		out.Scenarios = append(out.Scenarios, sc)
		log.Debug("scenario loaded", "path", path, "customers", len(r.file.Customers), "depots", len(r.file.Depots))
	}
	if len(out.Scenarios) == 0 {
		errs := []error{lrp.ErrNoScenarios}
		for _, s := range out.Skipped {
			errs = append(errs, s)
		}
		return out, errors.Join(errs...)
	}
	return out, nil
}
