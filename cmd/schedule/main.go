package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jdwit/s3-schedule-lambdas/internal/config"
	"github.com/jdwit/s3-schedule-lambdas/internal/schedule"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := config.FallbackLogger()
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		fallback := config.FallbackLogger()
		fallback.Fatal().Err(err).Msg("failed to create logger")
	}

	h := schedule.NewHandler(logger)

	if cfg.InLambda() {
		logger.Info().Msg("running in AWS Lambda environment")
		lambda.Start(h.HandleLambdaEvent)
		return
	}

	app := &cli.App{
		Name:  "schedule",
		Usage: "Invoke the scheduled job once, or on a cron schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "cron expression, e.g. \"@daily\" or \"*/5 * * * *\"; invoke once when empty",
				Value:   cfg.Schedule,
				EnvVars: []string{"SCHEDULE"},
			},
			&cli.StringFlag{
				Name:    "source",
				Usage:   "event source reported to the handler",
				Value:   cfg.EventSource,
				EnvVars: []string{"EVENT_SOURCE"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.String("cron") == "" {
				resp, err := h.HandleLambdaEvent(c.Context, schedule.NewEvent(c.String("source"), time.Now()))
				if err != nil {
					return err
				}
				fmt.Println(resp.Body)
				return nil
			}

			runner, err := schedule.NewRunner(h, c.String("cron"), c.String("source"), logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runner.Run(ctx)
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		logger.Fatal().Err(err).Msg("schedule failed")
	}
}
