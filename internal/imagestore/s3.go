package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignExpiry = 15 * time.Minute

// S3Config holds connection settings for an S3-compatible bucket.
type S3Config struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string // MinIO and other non-AWS endpoints
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 stores images as objects and hands out presigned GET URLs.
type S3 struct {
	bucket    string
	client    objectPutter
	presigner getPresigner
	now       func() time.Time
}

var _ Store = (*S3)(nil)

// NewS3 builds a client from static credentials.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		bucket:    cfg.Bucket,
		client:    client,
		presigner: s3.NewPresignClient(client),
		now:       time.Now,
	}, nil
}

// ObjectKey lays images out by owner and UTC day.
func ObjectKey(accountID, generationID uuid.UUID, contentType string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("generations/%s/%04d/%02d/%02d/%s%s",
		accountID, at.Year(), int(at.Month()), at.Day(), generationID, extension(contentType))
}

func extension(contentType string) string {
	switch contentType {
	case "", "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".png"
}

func (s *S3) Put(ctx context.Context, accountID, generationID uuid.UUID, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "image/png"
	}
	key := ObjectKey(accountID, generationID, contentType, s.now())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func (s *S3) URL(ctx context.Context, ref string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", ref, err)
	}
	return req.URL, nil
}
