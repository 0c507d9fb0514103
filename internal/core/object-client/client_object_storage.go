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
	"github.com/aws/smithy-go"

	cfg "github.com/davidolu-py/legallens/internal/config"
	"github.com/davidolu-py/legallens/internal/core"
)

// uploadFunc is the per-bucket upload step the chain walks. Tests swap it for
// a stub; production uses S3Client.UploadFile.
type uploadFunc func(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)

type S3Client struct {
	client *s3.Client
	region string
	upload uploadFunc
}

func NewS3Client(ctx context.Context, cfg *cfg.Config) (core.ObjectClient, error) {
	if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
		return nil, fmt.Errorf("AWS credentials not set")
	}
	if cfg.AwsRegion == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	log.Println("Connected to AWS S3 successfully")

	c := &S3Client{
		client: client,
		region: cfg.AwsRegion,
	}
	c.upload = c.UploadFile
	return c, nil
}

// UploadFile uploads a file to S3 and returns the public URL.
func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	uploader := manager.NewUploader(c.client)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := uploader.Upload(ctxUpload, input)
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, key)
	return url, nil
}

// UploadFirstAvailable walks the configured bucket chain. A missing bucket
// advances to the next candidate; any other failure is authoritative and
// aborts the upload, since retrying a permission or network error against a
// different bucket only masks the real problem.
func (c *S3Client) UploadFirstAvailable(ctx context.Context, buckets []string, key string, data []byte, contentType string) (string, string, error) {
	if len(buckets) == 0 {
		return "", "", fmt.Errorf("no buckets configured")
	}

	up := c.upload
	if up == nil {
		up = c.UploadFile
	}

	var lastErr error
	for _, bucket := range buckets {
		url, err := up(ctx, bucket, key, data, contentType)
		if err == nil {
			return bucket, url, nil
		}
		if !isBucketMissing(err) {
			return "", "", err
		}
		log.Printf("s3: bucket %q missing, trying next candidate", bucket)
		lastErr = err
	}
	return "", "", fmt.Errorf("no bucket in chain accepted the upload: %w", lastErr)
}

// isBucketMissing classifies a missing-bucket failure. Some operations model
// it as *types.NoSuchBucket, but PutObject surfaces it as a generic API error
// carrying the NoSuchBucket code, so both shapes are checked.
func isBucketMissing(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}

func (c *S3Client) DeleteFile(ctx context.Context, bucket, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

var _ core.ObjectClient = (*S3Client)(nil)
