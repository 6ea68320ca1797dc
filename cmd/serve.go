package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arya-analytics/orbits/pkg/api"
	"github.com/arya-analytics/orbits/pkg/api/token"
	"github.com/arya-analytics/orbits/pkg/metrics"
	"github.com/arya-analytics/orbits/pkg/storage"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout      = 5 * time.Second
	sessionSweepInterval = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve orbit navigation sessions over HTTP",
	Long: `Serve opens the store and serves orbit navigation sessions under /api/v1, along
with prometheus metrics on a separate listener. Sessions are addressed with bearer
tokens signed with --secret. If no secret is given, a random one is generated and
tokens don't survive a restart.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		logger, err := configureLogging()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// Set up the storage backend.
		store, err := storage.Open(newStorageConfig(logger))
		if err != nil {
			return err
		}
		defer func() {
			err = errors.CombineErrors(err, store.Close())
		}()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}

		svc, err := api.New(api.Config{
			Source:  store,
			Token:      newTokenService(),
			SessionTTL: viper.GetDuration("session-ttl"),
			Logger:     logger.Named("api"),
			Metrics:    m,
		})
		if err != nil {
			return err
		}
		app := svc.App()
		metricsSrv := &http.Server{
			Addr:              viper.GetString("metrics-address"),
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: shutdownTimeout,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("serving api", zap.String("address", viper.GetString("listen-address")))
			return app.Listen(viper.GetString("listen-address"))
		})
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("address", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error { return svc.Run(ctx, sessionSweepInterval) })
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("shutting down")
			sCtx, sCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer sCancel()
			return errors.CombineErrors(app.Shutdown(), metricsSrv.Shutdown(sCtx))
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP(
		"listen-address",
		"l",
		"127.0.0.1:9090",
		"Address the API listens on.",
	)
	serveCmd.Flags().String(
		"metrics-address",
		"127.0.0.1:9091",
		"Address prometheus metrics are served on.",
	)
	serveCmd.Flags().String(
		"secret",
		"",
		"Secret used to sign session tokens.",
	)
	serveCmd.Flags().Duration(
		"token-expiration",
		24*time.Hour,
		"Lifetime of session tokens.",
	)
	serveCmd.Flags().Duration(
		"session-ttl",
		0,
		"Lifetime of navigation sessions. Defaults to the token expiration.",
	)
}

func newTokenService() *token.Service {
	secret := viper.GetString("secret")
	if secret == "" {
		secret = uuid.New().String()
	}
	return &token.Service{
		Secret:     []byte(secret),
		Expiration: viper.GetDuration("token-expiration"),
	}
}
