package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/haasonsaas/sitechat/pkg/models"
)

// S3Config configures an S3-compatible document bucket.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	// TempDir receives downloaded objects; empty means os.TempDir.
	TempDir string `yaml:"temp_dir"`
}

// S3API is the subset of the S3 client used by S3Bucket.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Bucket yields the .txt and .pdf objects under a prefix. Each object is
// downloaded to a temporary file that is removed once the callback returns.
type S3Bucket struct {
	client S3API
	bucket string
	prefix string
	tmpDir string
	logger *slog.Logger
}

// NewS3Client builds an S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Bucket returns a collection over bucket/prefix read through client.
func NewS3Bucket(client S3API, cfg S3Config, logger *slog.Logger) (*S3Bucket, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Bucket{
		client: client,
		bucket: bucket,
		prefix: strings.TrimLeft(cfg.Prefix, "/"),
		tmpDir: strings.TrimSpace(cfg.TempDir),
		logger: logger.With("component", "source", "bucket", bucket),
	}, nil
}

// Each lists the bucket page by page and yields one document per supported
// object. A failed listing ends the iteration with an error; a failed
// download is logged and skipped.
func (b *S3Bucket) Each(ctx context.Context, fn func(models.Source) error) error {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}
	if b.prefix != "" {
		input.Prefix = aws.String(b.prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list objects %s/%s: %w", b.bucket, b.prefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") || models.FormatForPath(key) == models.FormatUnknown {
				continue
			}
			if err := b.yield(ctx, key, fn); err != nil {
				return stopOK(err)
			}
		}
	}
	return nil
}

// yield downloads key and hands it to fn. Only errors from fn or the
// context are returned.
func (b *S3Bucket) yield(ctx context.Context, key string, fn func(models.Source) error) error {
	tmp, err := b.download(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.logger.Warn("skipping object", "key", key, "code", errorCode(err), "error", err)
		return nil
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn("remove temp file", "path", tmp, "error", err)
		}
	}()

	return fn(models.Source{
		Kind:   models.SourceDocument,
		Path:   tmp,
		Name:   key,
		Format: models.FormatForPath(key),
	})
}

func (b *S3Bucket) download(ctx context.Context, key string) (string, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	f, err := os.CreateTemp(b.tmpDir, "sitechat-*"+path.Ext(key))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("download %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

// errorCode extracts the S3 API error code, if any, for logging.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
