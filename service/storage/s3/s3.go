package s3

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"MProject/global"
	"MProject/tools/errs"
)

// BlobStore writes archival objects to S3-compatible cold storage.
// Retention is enforced by a bucket lifecycle rule, not by this process.
type BlobStore struct {
	bucket string
	client *s3.Client
}

func NewBlobStore(ctx context.Context, cfg global.S3Config) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, errs.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &BlobStore{bucket: cfg.Bucket, client: client}, nil
}

// PutObject uploads one archival batch under the given key.
func (b *BlobStore) PutObject(ctx context.Context, key string, body []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errs.WrapMsg(err, "s3 put object", "key", key)
	}
	return nil
}

// Health checks bucket reachability.
func (b *BlobStore) Health(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	return err
}
