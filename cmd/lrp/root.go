package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lrpsolve/internal/api"
	"lrpsolve/internal/buildinfo"
	"lrpsolve/internal/config"
	"lrpsolve/internal/input"
	"lrpsolve/internal/logger"
	"lrpsolve/internal/lrp"
	"lrpsolve/internal/metrics"
	"lrpsolve/internal/progress"
	"lrpsolve/internal/store"
	"lrpsolve/internal/webhooks"
)

type options struct {
	configPath      string
	validate        bool
	minCapacity     int
	timeLimit       float64
	stages          string
	runtimeBudget   int
	finalIterations int
	seed            int64
	capacityOrder   string
	outputDir       string
	listen          string
	fromRun         string
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "lrp [flags] <scenario.json>... | -v <solution.sol> <scenario.json>...",
		Short: "Depot configuration search for the stochastic location-routing problem",
		Long: `lrp picks the set of depots to open that minimises opening cost plus the
mean routing cost over all demand scenarios.

Solve mode enumerates every depot set within a size bound, then prunes the
candidates through stages of increasingly deep routing optimisation and writes
Result_<time>_<run-id>.sol. Validation mode (-v) evaluates the depots listed
in a .sol file (or a stored run, --from-run) and writes
Validation_<time>_<run-id>.val.

Environment Variables:
  LRP_TIME_LIMIT, LRP_MIN_CAPACITY, LRP_STAGES, LRP_RUNTIME_BUDGET,
  LRP_FINAL_ITERATIONS, LRP_SEED, LRP_CAPACITY_ORDER, LRP_OUTPUT_DIR,
  LRP_LISTEN, LRP_EVENT_RATE   run options (flags win)
  LRP_WEBHOOK_URL, LRP_WEBHOOK_SECRET
                               POST run.completed / run.failed, HMAC signed
  DATABASE_URL                 keep run history in Postgres
  REDIS_URL                    publish progress events through Redis
  LOG_LEVEL, LOG_FORMAT        debug|info|warn|error, text|json`,
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, o.fromRun, args, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "YAML run configuration file")
	f.BoolVarP(&o.validate, "validate", "v", false, "validate the depots of a solution file instead of solving")
	f.IntVarP(&o.minCapacity, "min-capacity", "m", 0, "demand used for every scenario instead of its total customer demand")
	f.Float64VarP(&o.timeLimit, "time-limit", "t", lrp.DefaultPerIterationTimeLimit, "local-search time limit per iteration in milliseconds")
	f.StringVar(&o.stages, "stages", "", "comma separated stage caps, last must be 1 (default 100,10,3,1)")
	f.IntVar(&o.runtimeBudget, "runtime-budget", lrp.DefaultRuntimeBudget, "budget split across the pruning stages")
	f.IntVar(&o.finalIterations, "final-iterations", lrp.DefaultFinalIterations, "local-search iterations for the last stage and for validation")
	f.Int64Var(&o.seed, "seed", lrp.DefaultSeed, "base random seed; scenario i uses seed+i")
	f.StringVar(&o.capacityOrder, "capacity-order", "", "sort direction of the bound estimate: descending or ascending")
	f.StringVarP(&o.outputDir, "output", "o", "", "directory for .sol and .val files (default output)")
	f.StringVar(&o.listen, "listen", "", "serve health, metrics and the progress stream on this address while running")
	f.StringVar(&o.fromRun, "from-run", "", "validate the depots of a stored solve run instead of a .sol file")

	cmd.AddCommand(newServeCmd())
	return cmd
}

// config layers flags that were set explicitly over file and environment.
func (o *options) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	cfg.Run.ValidationMode = o.validate || o.fromRun != ""
	if f.Changed("min-capacity") {
		v := o.minCapacity
		cfg.Run.MinCapacityOverride = &v
	}
	if f.Changed("time-limit") {
		cfg.Run.PerIterationTimeLimit = o.timeLimit
	}
	if f.Changed("stages") {
		caps, err := config.ParseIntList(o.stages)
		if err != nil {
			return nil, fmt.Errorf("--stages: %w", err)
		}
		cfg.Run.Stages = caps
	}
	if f.Changed("runtime-budget") {
		cfg.Run.RuntimeBudget = o.runtimeBudget
	}
	if f.Changed("final-iterations") {
		cfg.Run.FinalIterations = o.finalIterations
	}
	if f.Changed("seed") {
		cfg.Run.Seed = o.seed
	}
	if f.Changed("capacity-order") {
		order, err := lrp.ParseSortOrder(o.capacityOrder)
		if err != nil {
			return nil, fmt.Errorf("--capacity-order: %w", err)
		}
		cfg.Run.CapacityOrder = order
	}
	if f.Changed("output") {
		cfg.OutputDir = o.outputDir
	}
	if f.Changed("listen") {
		cfg.ListenAddr = o.listen
	}
	if o.fromRun != "" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("--from-run requires DATABASE_URL: run history only outlives the process in Postgres")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitArgs sorts positional arguments by extension: .json files are
// scenarios, .sol files are solutions. Anything else is ignored.
func splitArgs(args []string, log *slog.Logger) (scenarios, solutions []string) {
	for _, a := range args {
		switch strings.ToLower(filepath.Ext(a)) {
		case ".json":
			scenarios = append(scenarios, a)
		case ".sol":
			solutions = append(solutions, a)
		default:
			log.Warn("argument ignored", "arg", a)
		}
	}
	return scenarios, solutions
}

func run(ctx context.Context, cfg *config.Config, fromRun string, args []string, out io.Writer) error {
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)
	metrics.RegisterDefault()

	scenarioPaths, solutionPaths := splitArgs(args, log)
	if len(scenarioPaths) == 0 {
		return fmt.Errorf("no scenario files given: %w", lrp.ErrNoScenarios)
	}
	if cfg.Run.ValidationMode {
		if fromRun == "" && len(solutionPaths) != 1 {
			return fmt.Errorf("validation needs exactly one .sol file or --from-run (got %d): %w", len(solutionPaths), lrp.ErrInputMalformed)
		}
	} else if len(solutionPaths) > 0 {
		log.Warn("solution files ignored outside validation mode", "files", solutionPaths)
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.Migrate)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	broker, closeBroker, err := openBroker(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeBroker()

	runID := uuid.NewString()
	log = log.With("run", runID)
	pub := progress.NewPublisher(broker, runID, cfg.EventRate)

	if cfg.ListenAddr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		srv := api.NewServer(st, broker, log)
		srv.Settings = settings(cfg, runID)
		go func() {
			if err := srv.ListenAndServe(srvCtx, cfg.ListenAddr); err != nil {
				log.Error("side-car stopped", "addr", cfg.ListenAddr, "err", err)
			}
		}()
	}

	notify := func(evt progress.Event) {
		if cfg.WebhookURL == "" {
			return
		}
		n := webhooks.NewNotifier(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookMaxAttempts)
		n.Logger = log
		// The run context may already be cancelled; give the outcome a
		// short window of its own.
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := n.Notify(nctx, evt); err != nil {
			log.Warn("webhook not delivered", "err", err)
		}
	}

	res, err := execute(ctx, cfg, fromRun, scenarioPaths, solutionPaths, st, pub, log)
	if err != nil {
		notify(pub.RunFailed(err))
		return err
	}

	path, err := store.FileWriter{Dir: cfg.OutputDir}.Write(res, runID)
	if err != nil {
		notify(pub.RunFailed(err))
		return err
	}
	sum := store.Summarize(res)
	sum.ID = runID
	sum.OutputPath = path
	if res.Validation {
		_, err = st.SaveValidation(ctx, sum)
	} else {
		_, err = st.SaveSolution(ctx, sum)
	}
	if err != nil {
		log.Warn("run history not saved", "err", err)
	}
	notify(pub.RunCompleted(res, path))

	report(out, res, path)
	return nil
}

func execute(ctx context.Context, cfg *config.Config, fromRun string, scenarioPaths, solutionPaths []string, st store.Store, obs lrp.Observer, log *slog.Logger) (*lrp.Result, error) {
	loaded, err := input.LoadScenarios(ctx, scenarioPaths, cfg.Run.Seed, log)
	if err != nil {
		return nil, err
	}
	set, err := lrp.NewScenarioSet(loaded.Scenarios, cfg.Run.MinCapacityOverride)
	if err != nil {
		return nil, err
	}
	p, err := lrp.NewPipeline(cfg.Run, loaded.Catalog, set)
	if err != nil {
		return nil, err
	}
	p.Logger = log
	p.Observer = lrp.Observers(obs, metrics.Recorder{})

	if !cfg.Run.ValidationMode {
		return p.Solve(ctx)
	}
	ids, err := openDepots(ctx, fromRun, solutionPaths, st)
	if err != nil {
		return nil, err
	}
	return p.Validate(ctx, ids)
}

func openDepots(ctx context.Context, fromRun string, solutionPaths []string, st store.Store) ([]int, error) {
	if fromRun == "" {
		return input.ReadSolution(solutionPaths[0])
	}
	sol, err := st.GetSolution(ctx, fromRun)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("run %s: %w", fromRun, lrp.ErrInputNotFound)
		}
		return nil, fmt.Errorf("run %s: %w", fromRun, err)
	}
	return input.OpenDepotSet(sol.OpenDepots)
}

// openBroker returns a Redis broker when url is set and an in-memory one
// otherwise, plus its cleanup.
func openBroker(ctx context.Context, url string) (progress.EventBroker, func(), error) {
	if url == "" {
		return progress.NewBroker(), func() {}, nil
	}
	rb, err := progress.NewRedisBroker(url)
	if err != nil {
		return nil, nil, fmt.Errorf("redis broker: %w", err)
	}
	if err := rb.Ping(ctx); err != nil {
		_ = rb.Close()
		return nil, nil, fmt.Errorf("redis broker: %w", err)
	}
	return rb, func() { _ = rb.Close() }, nil
}

func settings(cfg *config.Config, runID string) map[string]any {
	return map[string]any{
		"run":             runID,
		"validation":      cfg.Run.ValidationMode,
		"stages":          cfg.Run.StageCaps(),
		"runtimeBudget":   cfg.Run.RuntimeBudget,
		"finalIterations": cfg.Run.FinalIterations,
		"timeLimitMs":     cfg.Run.PerIterationTimeLimit,
		"capacityOrder":   cfg.Run.CapacityOrder.String(),
		"seed":            cfg.Run.Seed,
		"outputDir":       cfg.OutputDir,
		"postgres":        cfg.DatabaseURL != "",
		"redis":           cfg.RedisURL != "",
		"webhook":         cfg.WebhookURL != "",
	}
}

func report(out io.Writer, res *lrp.Result, path string) {
	if res.Validation {
		fmt.Fprintf(out, "depots %v opening cost %.4f\n", res.OpenDepots(), res.OpeningCost)
		for i, c := range res.PerScenario {
			fmt.Fprintf(out, "  %s: %.4f\n", res.ScenarioNames[i], c)
		}
	} else {
		fmt.Fprintf(out, "objective %.4f with %d open depots %v\n", res.Objective, len(res.OpenDepots()), res.OpenDepots())
	}
	fmt.Fprintf(out, "written %s\n", path)
}
