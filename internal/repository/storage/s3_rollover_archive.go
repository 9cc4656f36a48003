package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/dafibh/fortuna/fortuna-rollover/internal/config"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
)

// objectStore is the subset of the S3 client the archive uses
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3RolloverArchive writes every executed rollover as a JSON object to S3
type S3RolloverArchive struct {
	client objectStore
	bucket string
	now    func() time.Time
}

// NewS3RolloverArchive creates a new S3 rollover archive
func NewS3RolloverArchive(ctx context.Context, s3cfg cfg.S3Config) (*S3RolloverArchive, error) {
	// Build AWS config options
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	// Add credentials if provided
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Optional endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	if err := ensureBucket(ctx, client, s3cfg.Bucket); err != nil {
		return nil, err
	}

	return newS3RolloverArchive(client, s3cfg.Bucket), nil
}

func newS3RolloverArchive(client objectStore, bucket string) *S3RolloverArchive {
	return &S3RolloverArchive{
		client: client,
		bucket: bucket,
		now:    time.Now,
	}
}

// ensureBucket creates the private bucket if it doesn't exist
func ensureBucket(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket (may be permission denied): %w", err)
	}

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ObjectKey returns the archive key for a rollover into target at ts
func ObjectKey(userID uuid.UUID, target domain.Period, ts time.Time) string {
	return fmt.Sprintf("rollovers/%s/%s/%s.json", userID, target, ts.UTC().Format("20060102T150405.000Z"))
}

// Archive implements service.RolloverArchive
func (a *S3RolloverArchive) Archive(ctx context.Context, userID uuid.UUID, result *domain.RolloverResult) (string, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode rollover: %w", err)
	}

	ts := result.Record.ResetDate
	if ts.IsZero() {
		ts = a.now()
	}
	key := ObjectKey(userID, result.Target, ts)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload rollover: %w", err)
	}
	return key, nil
}

// Load reads an archived rollover back
func (a *S3RolloverArchive) Load(ctx context.Context, key string) (*domain.RolloverResult, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download rollover: %w", err)
	}
	defer out.Body.Close()

	var result domain.RolloverResult
	if err := json.NewDecoder(out.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rollover: %w", err)
	}
	return &result, nil
}
