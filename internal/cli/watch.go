package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"facetkit/internal/app"
)

type watchOptions struct {
	Configuration configurationOptions
	Debounce      time.Duration
	MetricsAddr   string
}

func newWatchCommand() *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Revalidate a configuration whenever it or the registry changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, opts)
		},
	}
	addConfigurationFlags(cmd, &opts.Configuration)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 300*time.Millisecond, "Quiet period before revalidating")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	_ = viper.BindPFlag("watch_debounce", cmd.Flags().Lookup("debounce"))
	_ = viper.BindPFlag("metrics_addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts watchOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := resolveString(cmd, opts.MetricsAddr, "metrics_addr", "metrics-addr"); addr != "" {
		server := &http.Server{Addr: addr, Handler: metricsMux(service), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Ctx(ctx).Error().Err(err).Str("addr", addr).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		log.Ctx(ctx).Info().Str("addr", addr).Msg("serving metrics")
	}

	return service.Watch(ctx, app.WatchRequest{
		Validate: app.ValidateRequest{
			Registry:      registrySource(),
			Configuration: opts.Configuration.resolve(cmd),
		},
		Debounce: resolveDuration(cmd, opts.Debounce, "watch_debounce", "debounce"),
		OnResult: func(result app.ValidateResult, err error) {
			printViolations(result.Violations)
			if err != nil {
				fmt.Printf("invalid: %s\n", errorMessage(err))
				return
			}
			fmt.Printf("valid: %s (%s)\n", projectName(result.Project), result.Configuration)
		},
	})
}

func metricsMux(service app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", service.Metrics.Handler())
	return mux
}
