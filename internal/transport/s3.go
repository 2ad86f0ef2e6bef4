package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/BadgerOps/uplink/internal/checksum"
	"github.com/BadgerOps/uplink/internal/config"
	"github.com/BadgerOps/uplink/internal/progress"
)

// S3 uploads objects with the AWS SDK, tuned for S3-compatible endpoints.
// The client is built lazily on first use; when no usable client can be
// constructed (no resolvable credentials), every upload fails with
// ExitUnavailable rather than aborting the whole run.
type S3 struct {
	cfg    config.S3Config
	logger *slog.Logger

	mu  sync.Mutex
	api *s3.Client
	// newClient is swapped out in tests.
	newClient func(ctx context.Context) (*s3.Client, error)
}

// NewS3 creates an object-storage transporter.
func NewS3(cfg config.S3Config, logger *slog.Logger) *S3 {
	if logger == nil {
		logger = slog.Default()
	}
	t := &S3{cfg: cfg, logger: logger}
	t.newClient = t.buildClient
	return t
}

func (t *S3) Upload(ctx context.Context, req Request) error {
	api, err := t.client(ctx)
	if err != nil {
		return Exitf(ExitUnavailable, "object storage client unavailable: %v", err)
	}

	key := req.Target.Resolve(filepath.Base(req.LocalPath))
	bucket := req.Target.Bucket

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", req.LocalPath, err)
	}
	defer f.Close()

	var body io.Reader = f
	if req.OnProgress != nil {
		body = progress.NewReader(f, req.Size, req.OnProgress)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(req.Size),
		ContentType:   aws.String("application/octet-stream"),
	}
	if req.SHA256 != "" && req.SHA256 != checksum.Unknown {
		input.Metadata = map[string]string{"sha256": req.SHA256}
	}

	t.logger.Debug("s3 upload", "bucket", bucket, "key", key, "size", req.Size)

	if _, err := api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// client returns the lazily constructed SDK client.
func (t *S3) client(ctx context.Context) (*s3.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.api != nil {
		return t.api, nil
	}
	api, err := t.newClient(ctx)
	if err != nil {
		return nil, err
	}
	t.api = api
	return api, nil
}

func (t *S3) buildClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(t.cfg.Region),
	}

	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	// Probe for usable credentials up front so a missing client surfaces
	// as one distinguishable failure instead of a signing error per file.
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("no object storage credentials: %w", err)
	}

	endpoint := t.cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = t.cfg.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}
