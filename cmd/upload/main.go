package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jdwit/s3-schedule-lambdas/internal/config"
	"github.com/jdwit/s3-schedule-lambdas/internal/targets"
	"github.com/jdwit/s3-schedule-lambdas/internal/upload"
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

	sess, err := cfg.NewSession()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create AWS session")
	}

	t, err := targets.GetTargets(cfg.Reporting, sess, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize report targets")
	}

	h := upload.NewHandler(sess, cfg.ScratchDir, t, logger)

	if cfg.InLambda() {
		logger.Info().Msg("running in AWS Lambda environment")
		lambda.Start(h.HandleLambdaEvent)
		return
	}

	app := &cli.App{
		Name:      "upload",
		Usage:     "Count the lines of every object below an S3 prefix",
		ArgsUsage: "s3://bucket/prefix",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("s3 url is required as an argument")
			}
			logger.Info().Msg("running in cli mode")
			return h.HandleS3URL(c.Context, c.Args().First())
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("upload failed")
	}
}
