// Package storage archives raw settlement documents in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
	infraconfig "github.com/sellerledger/backend/internal/infrastructure/config"
)

var gzipMagic = []byte{0x1f, 0x8b}

// objectAPI is the subset of the S3 client the archive uses
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3SettlementArchive implements integration.SettlementArchive on any
// S3-compatible store (AWS S3, MinIO, RustFS). Documents are stored gzip
// compressed under <prefix>/<account>/<document>.gz.
type S3SettlementArchive struct {
	client objectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

var _ integration.SettlementArchive = (*S3SettlementArchive)(nil)

// S3ArchiveOption is a functional option for configuring S3SettlementArchive
type S3ArchiveOption func(*S3SettlementArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(a *S3SettlementArchive) {
		a.logger = logger
	}
}

// withClient replaces the S3 client
func withClient(client objectAPI) S3ArchiveOption {
	return func(a *S3SettlementArchive) {
		a.client = client
	}
}

// NewS3SettlementArchive creates an archive from configuration
func NewS3SettlementArchive(cfg *infraconfig.StorageConfig, opts ...S3ArchiveOption) (*S3SettlementArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	archive := &S3SettlementArchive{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	if archive.client != nil {
		return archive, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, errors.New("storage access key and secret key must be set together")
		}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	archive.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return archive, nil
}

// normalizeEndpoint adds a scheme to a custom endpoint. An empty endpoint
// keeps the AWS default.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3SettlementArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating settlement archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Key returns the object key of a document
func (a *S3SettlementArchive) Key(accountID, documentID string) string {
	return path.Join(a.prefix, accountID, documentID+".gz")
}

// Put stores a document. Content that is already gzip compressed is stored
// as is.
func (a *S3SettlementArchive) Put(ctx context.Context, accountID, documentID string, content []byte) error {
	if accountID == "" || documentID == "" {
		return errors.New("account id and document id are required")
	}
	body, err := compress(content)
	if err != nil {
		return fmt.Errorf("failed to compress settlement document: %w", err)
	}

	key := a.Key(accountID, documentID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentType:     aws.String("text/tab-separated-values"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive settlement document: %w", err)
	}

	a.logger.Debug("Archived settlement document",
		zap.String("account_id", accountID),
		zap.String("document_id", documentID),
		zap.String("key", key),
		zap.Int("size", len(body)),
	)
	return nil
}

// Get returns the archived document decompressed, ok=false when missing
func (a *S3SettlementArchive) Get(ctx context.Context, accountID, documentID string) ([]byte, bool, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.Key(accountID, documentID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read archived settlement document: %w", err)
	}
	defer out.Body.Close()

	zr, err := gzip.NewReader(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress archived settlement document: %w", err)
	}
	defer zr.Close()

	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress archived settlement document: %w", err)
	}
	return content, true, nil
}

// compress gzips content unless it already is
func compress(content []byte) ([]byte, error) {
	if bytes.HasPrefix(content, gzipMagic) {
		return content, nil
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(content); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
