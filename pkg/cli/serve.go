package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	controller "github.com/Heterod0x/oto/pkg/controller/http"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var cfg config
	var addr string
	var queueConfigPath string

	flags := append(globalFlags(&cfg), providerFlags(&cfg)...)
	flags = append(flags, ledgerFlags(&cfg)...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP listen address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("OTO_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "queue-config",
			Usage:       "Path to YAML dispatcher tuning file",
			Sources:     cli.EnvVars("OTO_QUEUE_CONFIG"),
			Destination: &queueConfigPath,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the task dispatcher",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.New(cfg.logLevel, os.Stdout)
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			queueOpts, err := loadQueueOptions(queueConfigPath)
			if err != nil {
				return err
			}

			p, err := cfg.newPipeline(ctx, queueOpts)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:    addr,
				Handler: controller.New(p.conversations, p.profiles).Router(),
			}

			errCh := make(chan error, 2)
			go func() {
				logger.Info("http server listening", slog.String("addr", addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			go func() {
				logger.Info("dispatcher started")
				if err := p.dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err := <-errCh:
				stop()
				logger.Error("server failed", slog.Any("error", err))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
