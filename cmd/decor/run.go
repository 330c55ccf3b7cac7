package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sghaida/decor"
	"github.com/sghaida/decor/examples"
	"github.com/sghaida/decor/internal/tracing"
	"github.com/sghaida/decor/wrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios (all when none is named)",
		Example: `  decor run
  decor run singleton inject
  decor run timeout --timeout 200ms`,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			names := make([]string, 0, len(examples.All()))
			for _, s := range examples.All() {
				names = append(names, s.Name)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("timeout") {
				a.cfg.Timeout.Default = timeout
			}
			return a.run(cmd, args)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override timeout.default for the timeout scenario")
	return cmd
}

func (a *app) run(cmd *cobra.Command, names []string) error {
	selected, err := selectScenarios(names)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tp, err := tracing.Setup(ctx, a.cfg.Trace.ServiceName, a.cfg.Trace.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	metrics, err := wrap.NewMetrics(a.cfg.Metrics.Namespace, reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, s := range selected {
		logger := a.logger.With(zap.String("scenario", s.Name))
		env := &examples.Env{
			Registry: decor.New(decor.WithLogger(logger)),
			Out:      out,
			Timeout:  a.cfg.Timeout.Default,
			Breaker:  a.cfg.Breaker.Wrap(),
			Metrics:  metrics,
			Gatherer: reg,
			Tracer:   tp.Tracer(),
		}

		_, _ = fmt.Fprintf(out, "== %s: %s\n", s.Name, s.Summary)
		start := time.Now()
		if err := s.Run(ctx, env); err != nil {
			logger.Error("scenario failed", zap.Error(err))
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		logger.Debug("scenario finished", zap.Duration("elapsed", time.Since(start)))
		_, _ = fmt.Fprintln(out)
	}
	return nil
}

// selectScenarios resolves names in the given order; no names means all.
func selectScenarios(names []string) ([]examples.Scenario, error) {
	if len(names) == 0 {
		return examples.All(), nil
	}

	out := make([]examples.Scenario, 0, len(names))
	var unknown []string
	for _, name := range names {
		s, ok := examples.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown scenario(s): %s (see decor list)", strings.Join(unknown, ", "))
	}
	return out, nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenarios",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, s := range examples.All() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", s.Name, s.Summary)
			}
		},
	}
}
