package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client the transport calls.
type s3API interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
}

// S3Transport reads mods from a bucket, treating key prefixes as
// directories.
type S3Transport struct {
	client     s3API
	downloader *manager.Downloader
	bucket     string
}

// DialS3 loads the AWS configuration (optionally with a named profile and
// region) and returns a transport for opts.S3.Bucket. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func DialS3(ctx context.Context, opts Options) (Transport, error) {
	if opts.S3.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var cfgOpts []func(*config.LoadOptions) error
	if opts.S3.Profile != "" {
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(opts.S3.Profile))
	}
	if opts.S3.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.S3.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3(client, opts.S3.Bucket), nil
}

// NewS3 returns a transport for bucket using an existing client.
func NewS3(client s3API, bucket string) *S3Transport {
	return &S3Transport{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
	}
}

// keyPrefix turns a directory path into an S3 key prefix.
func keyPrefix(dir string) string {
	p := strings.Trim(dir, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// List returns the objects and common prefixes directly under dir.
func (s *S3Transport) List(ctx context.Context, dir string) ([]Entry, error) {
	prefix := keyPrefix(dir)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var entries []Entry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", s.bucket, prefix, err)
		}

		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				entries = append(entries, Entry{Name: name, IsDir: true})
			}
		}

		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			entries = append(entries, Entry{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	return entries, nil
}

// Fetch downloads the object at path.
func (s *S3Transport) Fetch(ctx context.Context, path string) ([]byte, error) {
	key := strings.TrimPrefix(path, "/")
	buf := manager.NewWriteAtBuffer(nil)

	if _, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", s.bucket, key, err)
	}
	return buf.Bytes(), nil
}

// Close is a no-op; the S3 client holds no connection state.
func (s *S3Transport) Close() error {
	return nil
}

var _ Transport = (*S3Transport)(nil)
