package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

// Config selects the bucket; empty Region and Profile fall back to the AWS default chain.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Profile      string
	UsePathStyle bool
}

// ObjectPutter is the narrow slice of the S3 client used for archiving.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads result PDFs to s3://bucket/prefix/<download date>/<file>.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

var _ ports.Archiver = (*S3Archiver)(nil)

// NewS3Archiver builds a client from the default AWS configuration chain.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithClient(c, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wires an existing S3 client.
func NewWithClient(client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a result.
func (a *S3Archiver) Key(r domain.Result) string {
	return path.Join(a.prefix, r.DownloadDate, filepath.Base(r.Path))
}

// Archive uploads the result file.
func (a *S3Archiver) Archive(ctx context.Context, r domain.Result) error {
	f, err := os.Open(r.Path)
	if err != nil {
		return fmt.Errorf("open result: %w", err)
	}
	defer f.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(r)),
		Body:        f,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, a.Key(r), err)
	}
	return nil
}
