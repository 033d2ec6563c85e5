package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog"
)

type Config struct {
	// AWSEndpoint points the SDK at a custom endpoint, e.g. localstack.
	AWSEndpoint      string `env:"AWS_ENDPOINT"`
	LambdaRuntimeAPI string `env:"AWS_LAMBDA_RUNTIME_API"`

	// ScratchDir is where objects are downloaded before processing.
	// /tmp is the only writable path inside Lambda.
	ScratchDir string `env:"SCRATCH_DIR" envDefault:"/tmp"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Reporting Reporting

	Schedule    string `env:"SCHEDULE"`
	EventSource string `env:"EVENT_SOURCE" envDefault:"local.cron"`
}

// Reporting configures where line count reports are sent.
type Reporting struct {
	Targets       string `env:"REPORT_TARGETS"`
	LogGroupName  string `env:"CLOUDWATCH_LOG_GROUP"`
	LogStreamName string `env:"CLOUDWATCH_LOG_STREAM"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// InLambda reports whether the process was started by the Lambda runtime.
func (c Config) InLambda() bool {
	return c.LambdaRuntimeAPI != ""
}

func (c Config) NewSession() (*session.Session, error) {
	if c.AWSEndpoint != "" {
		// localstack
		return session.NewSession(&aws.Config{
			Endpoint:         aws.String(c.AWSEndpoint),
			DisableSSL:       aws.Bool(true),
			S3ForcePathStyle: aws.Bool(true),
		})
	}

	return session.NewSession()
}

// NewLogger builds the root logger. JSON is the default since Lambda ships
// stdout to CloudWatch Logs as is.
func (c Config) NewLogger(out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	switch c.LogFormat {
	case "json", "":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid log format %q", c.LogFormat)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// FallbackLogger writes JSON to stderr; used until the configuration, and with
// it the real logger, is available.
func FallbackLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
