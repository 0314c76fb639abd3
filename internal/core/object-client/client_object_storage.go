package objectclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "github.com/markdave123-py/Examcraft/internal/config"
	"github.com/markdave123-py/Examcraft/internal/core"
)

const (
	putTimeout    = 2 * time.Minute
	deleteTimeout = 30 * time.Second
	// partSize keeps a 20 MB upload to a handful of parts.
	partSize = 8 << 20
)

var _ core.ObjectClient = (*S3Stager)(nil)

// S3Stager holds uploaded documents in one bucket while their job runs.
type S3Stager struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

func NewS3Stager(ctx context.Context, cfg *appconfig.Config) (*S3Stager, error) {
	switch {
	case cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "":
		return nil, errors.New("AWS credentials not set")
	case cfg.AwsRegion == "":
		return nil, errors.New("AWS_REGION not set")
	case cfg.BucketName == "":
		return nil, errors.New("BUCKET_NAME not set")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	log.Printf("ObjectClient: staging uploads in s3://%s (%s)", cfg.BucketName, cfg.AwsRegion)
	return &S3Stager{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = partSize
		}),
		bucket: cfg.BucketName,
	}, nil
}

// PutObject stores data under key and returns its s3:// location.
func (c *S3Stager) PutObject(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

// OpenObject streams the object at key. The caller bounds the read with ctx.
func (c *S3Stager) OpenObject(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("s3 object %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return resp.Body, nil
}

func (c *S3Stager) DeleteObject(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	if _, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}
