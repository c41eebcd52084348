package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of the s3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store: files as objects in a bucket, below an optional prefix
type S3Store struct {
	Client  S3API
	Bucket  string
	Prefix  string
	Timeout time.Duration
}

// NewS3Store loads the default AWS credential chain. An empty region falls
// back to AWS_REGION and the shared config.
func NewS3Store(ctx context.Context, bucket, region, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not set")
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &S3Store{
		Client:  s3.NewFromConfig(cfg),
		Bucket:  bucket,
		Prefix:  strings.Trim(prefix, "/"),
		Timeout: time.Minute,
	}, nil
}

// Save uploads the content and returns its key and md5 checksum.
func (s *S3Store) Save(filename string, r io.Reader) (string, string, error) {
	key := FeedKey(filename)

	hash := md5.New()
	var body bytes.Buffer
	if _, err := io.Copy(&body, io.TeeReader(r, hash)); err != nil {
		return "", "", fmt.Errorf("could not read file: %w", err)
	}
	sum := hash.Sum(nil)

	ctx, cancel := s.context()
	defer cancel()

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(body.Bytes()),
		ContentMD5:  aws.String(base64.StdEncoding.EncodeToString(sum)),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", "", fmt.Errorf("upload to s3 (bucket %s, key %s): %w", s.Bucket, key, err)
	}

	return key, hex.EncodeToString(sum), nil
}

// Open streams the object. The caller closes the body, which also ends the
// request, so no timeout applies here.
func (s *S3Store) Open(key string) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3 (bucket %s, key %s): %w", s.Bucket, key, err)
	}
	return out.Body, nil
}

// Remove deletes the object. S3 does not report missing keys.
func (s *S3Store) Remove(key string) error {
	ctx, cancel := s.context()
	defer cancel()

	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("delete from s3 (bucket %s, key %s): %w", s.Bucket, key, err)
	}
	return nil
}

func (s *S3Store) objectKey(key string) string {
	if s.Prefix == "" {
		return key
	}
	return path.Join(s.Prefix, key)
}

func (s *S3Store) context() (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.Timeout)
}
