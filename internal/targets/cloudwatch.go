package targets

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/jdwit/s3-schedule-lambdas/internal/config"
	"github.com/jdwit/s3-schedule-lambdas/internal/types"
	"github.com/rs/zerolog"
)

const (
	// maxBatchSize The maximum batch size of a PutLogEvents request to CloudWatch is 1MB (1_048_576 bytes)
	maxBatchSize = 1_048_576
	// maxBatchCount The maximum number of events in a PutLogEvents request to CloudWatch is 10_000
	maxBatchCount = 10_000
	// eventOverhead is added by CloudWatch to the size of every event message
	eventOverhead = 26
)

type CloudWatchLogsAPI interface {
	PutLogEvents(*cloudwatchlogs.PutLogEventsInput) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(*cloudwatchlogs.CreateLogGroupInput) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(*cloudwatchlogs.CreateLogStreamInput) (*cloudwatchlogs.CreateLogStreamOutput, error)
	DescribeLogGroups(*cloudwatchlogs.DescribeLogGroupsInput) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DescribeLogStreams(*cloudwatchlogs.DescribeLogStreamsInput) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
}

type LogConfig struct {
	LogGroupName  string
	LogStreamName string
}

type CloudWatchTarget struct {
	cwClient  CloudWatchLogsAPI
	logConfig LogConfig
}

func (c *CloudWatchTarget) SendReports(reports []types.LineReport) error {
	var events []*cloudwatchlogs.InputLogEvent
	var currentBatchSize int

	for _, report := range reports {
		jsonData, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("error marshaling line report to JSON: %w", err)
		}

		// Request size to CloudWatch is calculated as the sum of all event messages in UTF-8, plus 26 bytes for each log event
		// https://docs.aws.amazon.com/AmazonCloudWatch/latest/logs/cloudwatch_limits_cwl.html
		eventSize := len(jsonData) + eventOverhead

		if len(events) > 0 && (currentBatchSize+eventSize > maxBatchSize || len(events) >= maxBatchCount) {
			if err := c.sendBatch(events); err != nil {
				return err
			}
			events = nil
			currentBatchSize = 0
		}

		events = append(events, &cloudwatchlogs.InputLogEvent{
			Message:   aws.String(string(jsonData)),
			Timestamp: aws.Int64(report.Timestamp.UnixMilli()),
		})
		currentBatchSize += eventSize
	}

	if len(events) > 0 {
		return c.sendBatch(events)
	}
	return nil
}

func NewCloudWatchTarget(cfg config.Reporting, sess *session.Session, logger zerolog.Logger) (Target, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("environment variable CLOUDWATCH_LOG_GROUP is required")
	}
	if cfg.LogStreamName == "" {
		return nil, fmt.Errorf("environment variable CLOUDWATCH_LOG_STREAM is required")
	}

	logConfig := LogConfig{
		LogGroupName:  cfg.LogGroupName,
		LogStreamName: cfg.LogStreamName,
	}

	cwClient := cloudwatchlogs.New(sess)
	if err := ensureLogGroupAndLogStreamExists(cwClient, logConfig, logger); err != nil {
		return nil, fmt.Errorf("error creating log group and stream: %w", err)
	}

	return &CloudWatchTarget{cwClient: cwClient, logConfig: logConfig}, nil
}

func ensureLogGroupAndLogStreamExists(client CloudWatchLogsAPI, logConfig LogConfig, logger zerolog.Logger) error {
	if err := ensureLogGroupExists(client, logConfig.LogGroupName, logger); err != nil {
		return err
	}
	return ensureLogStreamExists(client, logConfig.LogGroupName, logConfig.LogStreamName, logger)
}

func ensureLogGroupExists(client CloudWatchLogsAPI, name string, logger zerolog.Logger) error {
	resp, err := client.DescribeLogGroups(&cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(name),
	})
	if err != nil {
		return err
	}
	for _, logGroup := range resp.LogGroups {
		if aws.StringValue(logGroup.LogGroupName) == name {
			return nil
		}
	}
	logger.Info().Str("log_group", name).Msg("creating log group")
	_, err = client.CreateLogGroup(&cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	})

	return err
}

func ensureLogStreamExists(client CloudWatchLogsAPI, logGroupName, logStreamName string, logger zerolog.Logger) error {
	resp, err := client.DescribeLogStreams(&cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName:        aws.String(logGroupName),
		LogStreamNamePrefix: aws.String(logStreamName),
	})
	if err != nil {
		return err
	}
	for _, logStream := range resp.LogStreams {
		if aws.StringValue(logStream.LogStreamName) == logStreamName {
			return nil
		}
	}
	logger.Info().Str("log_group", logGroupName).Str("log_stream", logStreamName).Msg("creating log stream")
	_, err = client.CreateLogStream(&cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(logGroupName),
		LogStreamName: aws.String(logStreamName),
	})

	return err
}

func (c *CloudWatchTarget) sendBatch(events []*cloudwatchlogs.InputLogEvent) error {
	// Log events in a single PutLogEvents request must be in chronological order
	sort.SliceStable(events, func(i, j int) bool {
		return aws.Int64Value(events[i].Timestamp) < aws.Int64Value(events[j].Timestamp)
	})
	_, err := c.cwClient.PutLogEvents(&cloudwatchlogs.PutLogEventsInput{
		LogEvents:     events,
		LogGroupName:  aws.String(c.logConfig.LogGroupName),
		LogStreamName: aws.String(c.logConfig.LogStreamName),
	})
	if err != nil {
		return fmt.Errorf("error sending events to CloudWatch: %w", err)
	}
	return nil
}
