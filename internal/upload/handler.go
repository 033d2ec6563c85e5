package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/jdwit/s3-schedule-lambdas/internal/targets"
	"github.com/jdwit/s3-schedule-lambdas/internal/types"
	"github.com/rs/zerolog"
)

type S3Api interface {
	ListObjectsV2WithContext(ctx aws.Context, input *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error)
}

// Downloader fetches a whole object into w.
type Downloader interface {
	DownloadWithContext(ctx aws.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*s3manager.Downloader)) (int64, error)
}

type Handler struct {
	s3Client   S3Api
	downloader Downloader
	scratchDir string
	targets    []targets.Target
	logger     zerolog.Logger
	now        func() time.Time
}

func NewHandler(sess *session.Session, scratchDir string, t []targets.Target, logger zerolog.Logger) *Handler {
	return newHandler(s3.New(sess), s3manager.NewDownloader(sess), scratchDir, t, logger)
}

func newHandler(client S3Api, downloader Downloader, scratchDir string, t []targets.Target, logger zerolog.Logger) *Handler {
	return &Handler{
		s3Client:   client,
		downloader: downloader,
		scratchDir: scratchDir,
		targets:    t,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleLambdaEvent processes every record of an S3 notification in order.
// Failing to read a downloaded file is logged and skipped; failing to
// download it aborts the invocation.
func (h *Handler) HandleLambdaEvent(ctx context.Context, event events.S3Event) (types.UploadResponse, error) {
	if err := h.processS3Objects(ctx, types.ObjectsFromEvent(event)); err != nil {
		return types.UploadResponse{}, err
	}
	return types.UploadResponse{Status: types.StatusOK}, nil
}

// HandleS3URL processes every object below an s3://bucket/prefix URL.
func (h *Handler) HandleS3URL(ctx context.Context, url string) error {
	bucket, prefix, err := parseS3Url(url)
	if err != nil {
		return fmt.Errorf("failed to parse S3 URL: %w", err)
	}

	var s3Objects []types.S3ObjectInfo
	var continuationToken *string
	for {
		resp, err := h.s3Client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		for _, item := range resp.Contents {
			s3Objects = append(s3Objects, types.S3ObjectInfo{
				Bucket: bucket,
				Key:    aws.StringValue(item.Key),
			})
		}

		if !aws.BoolValue(resp.IsTruncated) {
			break
		}
		continuationToken = resp.NextContinuationToken
	}

	return h.processS3Objects(ctx, s3Objects)
}

func (h *Handler) processS3Objects(ctx context.Context, s3Objects []types.S3ObjectInfo) error {
	logger := h.invocationLogger(ctx)

	var reports []types.LineReport
	for _, s3obj := range s3Objects {
		report, ok, err := h.processObject(ctx, logger, s3obj)
		if err != nil {
			return err
		}
		if ok {
			reports = append(reports, report)
		}
	}

	h.sendReports(logger, reports)
	return nil
}

func (h *Handler) processObject(ctx context.Context, logger zerolog.Logger, s3obj types.S3ObjectInfo) (types.LineReport, bool, error) {
	logger.Info().Str("bucket", s3obj.Bucket).Str("key", s3obj.Key).
		Msgf("New file uploaded: s3://%s/%s", s3obj.Bucket, s3obj.Key)

	downloadPath, err := h.download(ctx, s3obj)
	if err != nil {
		return types.LineReport{}, false, fmt.Errorf("failed to download s3://%s/%s: %w", s3obj.Bucket, s3obj.Key, err)
	}
	defer func() {
		if err := os.Remove(downloadPath); err != nil {
			logger.Debug().Err(err).Str("path", downloadPath).Msg("could not remove scratch file")
		}
	}()

	lineCount, err := countFileLines(downloadPath)
	if err != nil {
		logger.Error().Err(err).Str("key", s3obj.Key).Msgf("Failed to process file: %v", err)
		return types.LineReport{}, false, nil
	}

	logger.Info().Str("key", s3obj.Key).Int("line_count", lineCount).
		Msgf("Processed file: %s, line count: %d", s3obj.Key, lineCount)

	return types.LineReport{
		Bucket:    s3obj.Bucket,
		Key:       s3obj.Key,
		Lines:     lineCount,
		Timestamp: h.now(),
	}, true, nil
}

// download writes the object to the scratch directory under the base name of
// its key and returns the local path.
func (h *Handler) download(ctx context.Context, s3obj types.S3ObjectInfo) (string, error) {
	downloadPath := filepath.Join(h.scratchDir, path.Base(s3obj.Key))

	f, err := os.Create(downloadPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = h.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s3obj.Bucket),
		Key:    aws.String(s3obj.Key),
	})
	if err != nil {
		_ = os.Remove(downloadPath)
		return "", err
	}
	return downloadPath, nil
}

func countFileLines(name string) (int, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return CountLines(f)
}

func (h *Handler) sendReports(logger zerolog.Logger, reports []types.LineReport) {
	if len(reports) == 0 {
		return
	}
	for _, target := range h.targets {
		if err := target.SendReports(reports); err != nil {
			logger.Warn().Err(err).Int("reports", len(reports)).Msg("failed to send line reports")
		}
	}
}

func (h *Handler) invocationLogger(ctx context.Context) zerolog.Logger {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return h.logger.With().Str("request_id", lc.AwsRequestID).Logger()
	}
	return h.logger
}

// parseS3Url splits s3://bucket/prefix. The prefix may be empty, the bucket
// may not.
func parseS3Url(url string) (bucket string, prefix string, err error) {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 URL, missing 's3://' prefix")
	}
	bucket, prefix, ok = strings.Cut(rest, "/")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 URL, no '/' found after bucket name")
	}
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q, empty bucket name", url)
	}
	return bucket, prefix, nil
}
