package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/internal/mq"
	"github.com/yelpcamp/apiserver/internal/notify"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deliver queued notification mail over SMTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.Mail.Host == "" {
			return errors.New("SMTP_HOST is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer queue.Close()

		mailer, err := notify.NewMailer(cfg.Mail)
		if err != nil {
			return fmt.Errorf("create mailer: %w", err)
		}

		err = notify.NewWorker(queue, cfg.MQ.MailChannel, mailer).Run(ctx)
		if err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
