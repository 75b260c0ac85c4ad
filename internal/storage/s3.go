package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g., "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
}

// PayloadArchive stores raw webhook payload bodies in S3-compatible storage.
// The archive is the durable home of each message's original payload; the
// message row only carries the object key.
type PayloadArchive struct {
	client *s3.Client
	bucket string
}

// NewPayloadArchive creates a new S3-backed payload archive
func NewPayloadArchive(cfg S3Config) (*PayloadArchive, error) {
	// Create S3 client with static credentials and custom endpoint
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // Required for MinIO
	})

	return &PayloadArchive{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Store archives one raw webhook body and returns its object key
func (a *PayloadArchive) Store(ctx context.Context, body []byte) (string, error) {
	key := fmt.Sprintf("webhooks/%s/%s.json", time.Now().Format("2006/01/02"), uuid.New().String())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("archiving payload: %w", err)
	}

	return key, nil
}

// Get retrieves an archived payload by key
func (a *PayloadArchive) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching archived payload: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading archived payload: %w", err)
	}

	return body, nil
}
