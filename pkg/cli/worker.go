package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func workerCommand() *cli.Command {
	var cfg config
	var queueConfigPath string

	flags := append(globalFlags(&cfg), providerFlags(&cfg)...)
	flags = append(flags, ledgerFlags(&cfg)...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "queue-config",
			Usage:       "Path to YAML dispatcher tuning file",
			Sources:     cli.EnvVars("OTO_QUEUE_CONFIG"),
			Destination: &queueConfigPath,
		},
	)

	return &cli.Command{
		Name:  "worker",
		Usage: "Run only the task dispatcher, without the HTTP API",
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

			logger.Info("dispatcher started")
			if err := p.dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
