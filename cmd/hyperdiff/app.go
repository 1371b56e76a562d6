package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/config"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/version"
)

// annotationNoSetup marks commands that run without config or telemetry.
const annotationNoSetup = "hyperdiff/no-setup"

// app is the state shared by all commands of one invocation.
type app struct {
	cfgFile string
	verbose bool
	quiet   bool

	cfg       *config.Config
	logger    *slog.Logger
	providers observability.Providers
	// metricsHandler serves /metrics in server mode.
	metricsHandler http.Handler
}

func modeOf(cmd *cobra.Command) observability.AppMode {
	switch cmd.Name() {
	case "server":
		return observability.ModeServer
	case "batch":
		return observability.ModeBatch
	default:
		return observability.ModeCLI
	}
}

func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationNoSetup] != "" {
		return nil
	}

	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}

	a.cfg = cfg
	mode := modeOf(cmd)

	oc := cfg.ObservabilityConfig(mode, version.Version)

	switch {
	case a.verbose:
		oc.LogLevel = slog.LevelDebug
	case a.quiet:
		oc.LogLevel = slog.LevelError
	}

	var opts []observability.Option

	if mode == observability.ModeServer {
		handler, mp, promErr := observability.PrometheusHandler()
		if promErr != nil {
			return promErr
		}

		a.metricsHandler = handler
		opts = append(opts, observability.WithMeterProvider(mp))
	}

	providers, err := observability.Init(oc, opts...)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	a.providers = providers
	a.logger = providers.Logger

	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.providers.Shutdown == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	err := a.providers.Shutdown(ctx)
	a.providers.Shutdown = nil

	if err != nil {
		return fmt.Errorf("shutdown observability: %w", err)
	}

	return nil
}

// matcherFlags overrides the configured matcher thresholds.
type matcherFlags struct {
	sizeThreshold int
	simThreshold  string
	slicing       string
	minHeight     int
	eager         bool
}

func (mf *matcherFlags) bind(fs *pflag.FlagSet) {
	fs.IntVar(&mf.sizeThreshold, "size-threshold", matchers.DefaultSizeThreshold,
		"largest descendant count the exact matcher runs on (0 disables it)")
	fs.StringVar(&mf.simThreshold, "sim-threshold", "1/2", "least Dice score of a bottom-up link, as num/den")
	fs.StringVar(&mf.slicing, "slicing", string(matchers.SliceView), "exact matcher input: slice or decompress")
	fs.IntVar(&mf.minHeight, "min-height", matchers.DefaultMinHeight, "smallest subtree height the top-down phase pairs")
	fs.BoolVar(&mf.eager, "eager", false, "decompress both trees up front")
}

// apply returns the configured matcher settings with the changed flags
// applied, validated.
func (mf *matcherFlags) apply(fs *pflag.FlagSet, cfg *config.Config) (matchers.Config, error) {
	mc, err := cfg.MatcherConfig()
	if err != nil {
		return matchers.Config{}, err
	}

	if fs.Changed("size-threshold") {
		mc.SizeThreshold = mf.sizeThreshold
	}

	if fs.Changed("sim-threshold") {
		if _, scanErr := fmt.Sscanf(mf.simThreshold, "%d/%d", &mc.SimThresholdNum, &mc.SimThresholdDen); scanErr != nil {
			return matchers.Config{}, fmt.Errorf("%w: %q", matchers.ErrInvalidSimThreshold, mf.simThreshold)
		}
	}

	if fs.Changed("slicing") {
		mc.Slicing = matchers.SliceStrategy(mf.slicing)
	}

	if fs.Changed("min-height") {
		mc.MinHeight = mf.minHeight
	}

	if err := mc.Validate(); err != nil {
		return matchers.Config{}, err
	}

	return mc, nil
}
