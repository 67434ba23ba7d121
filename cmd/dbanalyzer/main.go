package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tneupaney/dbanalyzer/internal/adapter/mysql"
	"github.com/tneupaney/dbanalyzer/internal/adapter/policy"
	"github.com/tneupaney/dbanalyzer/internal/adapter/postgres"
	"github.com/tneupaney/dbanalyzer/internal/adapter/sqlite"
	"github.com/tneupaney/dbanalyzer/internal/audit"
	"github.com/tneupaney/dbanalyzer/internal/config"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"github.com/tneupaney/dbanalyzer/internal/core/service"
	"github.com/tneupaney/dbanalyzer/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

var version = "dev"

// flags holds raw CLI flag values; unset flags stay nil so env vars win.
type flags struct {
	databaseURL  string
	driver       string
	schema       string
	logLevel     string
	queryTimeout time.Duration
	seed         int64
	repetitions  int
	sampleSize   int
	concurrency  int
	policyFile   string
	auditLog     string
	otel         bool
}

// errCriticalFindings signals a completed analysis with critical findings.
var errCriticalFindings = fmt.Errorf("analysis reported critical findings")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if err == errCriticalFindings {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "dbanalyzer",
		Short: "Dynamic database analysis: discovery, benchmarking, and findings",
		Long: `dbanalyzer connects to a SQLite, MySQL, or PostgreSQL database, discovers
its schema, benchmarks a synthetic workload against it, and reports findings
about indexing, referential integrity, sensitive data exposure, trigger
overhead, and join cost.

The run is read-only except for a trigger overhead probe whose synthetic
rows are rolled back before the run ends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.databaseURL, "database-url", "", "database URL or path (overrides DATABASE_URL)")
	pf.StringVar(&f.driver, "driver", "", "database driver: sqlite, mysql, or postgres (overrides DB_DRIVER)")
	pf.StringVar(&f.schema, "schema", "", "postgres schema to analyze (overrides DB_SCHEMA)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	pf.DurationVar(&f.queryTimeout, "query-timeout", 0, "per-statement timeout (overrides QUERY_TIMEOUT)")
	pf.Int64Var(&f.seed, "seed", 0, "workload generation seed (overrides WORKLOAD_SEED)")
	pf.IntVar(&f.repetitions, "repetitions", 0, "timed repetitions per benchmark statement (overrides BENCH_REPETITIONS)")
	pf.IntVar(&f.sampleSize, "sample-size", 0, "key sample size per table (overrides SAMPLE_SIZE)")
	pf.IntVar(&f.concurrency, "concurrency", 0, "parallel workers for discovery and benchmarking (overrides CONCURRENCY)")
	pf.StringVar(&f.policyFile, "policy", "", "path to analysis policy YAML (overrides POLICY_FILE)")
	pf.StringVar(&f.auditLog, "audit-log", "", "path to NDJSON statement audit log")
	pf.BoolVar(&f.otel, "otel", false, "enable OpenTelemetry tracing and metrics")

	root.AddCommand(newAnalyzeCmd(f))
	root.AddCommand(newMCPCmd(f))

	return root
}

// loadConfig turns flags into config overrides and loads the final config.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	o := config.Overrides{
		OTelEnabled: f.otel,
		AuditLog:    f.auditLog,
	}
	set := cmd.Flags().Changed
	if set("database-url") {
		o.DatabaseURL = &f.databaseURL
	}
	if set("driver") {
		o.Driver = &f.driver
	}
	if set("schema") {
		o.Schema = &f.schema
	}
	if set("log-level") {
		o.LogLevel = &f.logLevel
	}
	if set("query-timeout") {
		o.QueryTimeout = &f.queryTimeout
	}
	if set("seed") {
		o.Seed = &f.seed
	}
	if set("repetitions") {
		o.Repetitions = &f.repetitions
	}
	if set("sample-size") {
		o.SampleSize = &f.sampleSize
	}
	if set("concurrency") {
		o.Concurrency = &f.concurrency
	}
	if set("policy") {
		o.PolicyFile = &f.policyFile
	}
	return config.Load(o)
}

// runtime is everything a subcommand needs to do its work, plus the cleanup
// to run when it is done.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	dialect port.Dialect
	engine  *service.Engine
	tracer  trace.Tracer
	cleanup func()
}

// setup builds the full adapter chain: dialect, policy filter, audit
// decorator, telemetry, engine.
func setup(ctx context.Context, cmd *cobra.Command, f *flags) (*runtime, error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr — stdout is reserved for report output and the MCP
	// stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*runtime, error) {
		cleanup()
		return nil, err
	}

	tracer := telemetry.NoopTracer()
	var inst port.Instrumentation = port.NoopInstrumentation{}
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, version)
		if err != nil {
			return fail(fmt.Errorf("initializing telemetry: %w", err))
		}
		cleanups = append(cleanups, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
			}
		})
		tracer = telemetry.Tracer()
		inst = telemetry.NewInstruments()
	}

	dialect, closeDialect, err := openDialect(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("connecting to database: %w", err))
	}
	cleanups = append(cleanups, closeDialect)
	logger.Info("database connected",
		slog.String("db.system", cfg.Driver),
		slog.String("version", version),
	)

	thresholds := service.DefaultThresholds()
	thresholds.TriggerOverhead = cfg.TriggerOverheadThreshold
	thresholds.JoinMultiplier = cfg.JoinCostMultiplier
	thresholds.SecuritySampleSize = cfg.SecuritySampleSize

	if cfg.PolicyFile != "" {
		pol, err := policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			return fail(fmt.Errorf("loading policy: %w", err))
		}
		dialect = policy.NewDialect(dialect, pol)
		thresholds = pol.ApplyThresholds(thresholds)
		logger.Info("policy loaded", slog.String("file", cfg.PolicyFile))
	}

	if cfg.AuditLog != "" {
		auditor, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fail(fmt.Errorf("opening audit log: %w", err))
		}
		cleanups = append(cleanups, func() { _ = auditor.Close() })
		dialect = audit.NewDialect(dialect, auditor)
		logger.Info("statement auditing enabled", slog.String("file", cfg.AuditLog))
	}

	engine := service.NewEngine(dialect, service.Options{
		Seed:        cfg.Seed,
		Repetitions: cfg.Repetitions,
		SampleSize:  cfg.SampleSize,
		Concurrency: cfg.Concurrency,
		Thresholds:  thresholds,
	}, logger, inst, tracer)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		dialect: dialect,
		engine:  engine,
		tracer:  tracer,
		cleanup: cleanup,
	}, nil
}

func openDialect(ctx context.Context, cfg *config.Config) (port.Dialect, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		d, err := sqlite.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		d.QueryTimeout = cfg.QueryTimeout
		return d, func() { _ = d.Close() }, nil
	case "mysql":
		d, err := mysql.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		d.QueryTimeout = cfg.QueryTimeout
		return d, func() { _ = d.Close() }, nil
	case "postgres":
		d, err := postgres.Open(ctx, cfg.DatabaseURL,
			postgres.WithSchema(cfg.Schema),
			postgres.WithQueryTimeout(cfg.QueryTimeout),
		)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// signalContext returns a context cancelled on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}
