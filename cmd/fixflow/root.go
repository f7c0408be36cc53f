package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fixflow"
	"github.com/kailas-cloud/fixflow/internal/config"
	logpkg "github.com/kailas-cloud/fixflow/internal/logger"
	"github.com/kailas-cloud/fixflow/internal/metrics"
	"github.com/kailas-cloud/fixflow/internal/version"
)

// app carries what the subcommands share. It is populated in the root
// command's PersistentPreRunE.
type app struct {
	configPath string
	env        string
	apiURL     string
	timeout    time.Duration
	logLevel   string
	jsonOut    bool

	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	client   *fixflow.Client
}

// run builds the command tree, executes args and flushes logs and metrics
// whether or not the command succeeded.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if ferr := a.finish(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fixflow",
		Short: "Search and share problem/solution knowledge",
		Long: `fixflow talks to a FixFlow knowledge-base backend: submit issues with their
fixes, search them in natural language, browse what is trending and mark
what helped.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a config file (default: config/<env>.yaml)")
	pf.StringVar(&a.env, "env", config.GetEnv(), "environment: local, dev or prod")
	pf.StringVar(&a.apiURL, "api-url", "", "backend API root, overrides api.base_url")
	pf.DurationVar(&a.timeout, "timeout", 0, "per-request timeout, overrides api.timeout_ms")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		a.createCmd(),
		a.searchCmd(),
		a.getCmd(),
		a.trendingCmd(),
		a.feedbackCmd(),
		a.healthCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if offline(cmd) {
		return nil
	}

	if a.timeout != 0 && a.timeout < time.Millisecond {
		return fmt.Errorf("--timeout must be at least 1ms, got %s", a.timeout)
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load(a.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.apiURL != "" {
		a.cfg.API.BaseURL = a.apiURL
	}
	if a.timeout > 0 {
		a.cfg.API.TimeoutMs = int(a.timeout.Milliseconds())
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}

	a.logger, err = logpkg.NewLogger(a.env, a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.registry = metrics.NewRegistry()

	a.client, err = fixflow.New(
		fixflow.WithBaseURL(a.cfg.API.BaseURL),
		fixflow.WithTimeout(a.cfg.API.Timeout()),
		fixflow.WithSearchLimit(a.cfg.API.SearchLimit),
		fixflow.WithTrendingLimit(a.cfg.API.TrendingLimit),
		fixflow.WithUserAgent("fixflow-cli/"+version.Version),
		fixflow.WithLogger(a.logger.Named("client")),
		fixflow.WithPrometheus(a.registry),
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	a.logger.Debug("fixflow configured",
		zap.String("version", version.Version),
		zap.String("env", a.env),
		zap.String("api_url", a.client.BaseURL()),
		zap.Duration("timeout", a.cfg.API.Timeout()),
	)
	cmd.SetContext(logpkg.ContextWithLogger(cmd.Context(), a.logger))
	return nil
}

// offline reports whether cmd runs without config or a client.
func offline(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help":
		return true
	}
	return cmd.HasParent() && cmd.Parent().Name() == "completion"
}

// finish exports metrics and flushes the logger.
func (a *app) finish() error {
	if a.logger == nil {
		return nil
	}
	defer func() { _ = a.logger.Sync() }()

	if path := a.cfg.Metrics.Textfile; path != "" && a.registry != nil {
		if err := metrics.WriteTextfile(path, a.registry); err != nil {
			a.logger.Warn("Failed to export metrics", zap.Error(err))
			return err
		}
		a.logger.Debug("Metrics exported", zap.String("path", path))
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fixflow version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fixflow", version.String())
		},
	}
}
