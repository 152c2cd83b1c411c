package resolver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// Downloader is the part of manager.Downloader the s3 driver uses.
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

func newS3Downloader(ctx context.Context, storage config.Storage) (Downloader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(storage.Region)}
	if storage.AccessKey != "" && storage.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storage.AccessKey, storage.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(storage.Endpoint)
			o.UsePathStyle = true
		}
	})

	return manager.NewDownloader(client), nil
}

// S3Driver downloads objects into request-scoped temp files.
type S3Driver struct {
	Downloader Downloader
	Bucket     string
	Region     string
	PublicURL  string
}

func (d *S3Driver) Open(ctx context.Context, p string) (types.FileHandle, error) {
	key, err := cleanRelative(p)
	if err != nil {
		return types.FileHandle{}, err
	}

	name := path.Base(key)
	ext := Extension(name)
	pattern := "metaprobe-*"
	if ext != "" {
		pattern += "." + ext
	}

	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return types.FileHandle{}, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() error {
		return os.Remove(tmp.Name())
	}

	n, err := d.Downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(key),
	})
	closeErr := tmp.Close()
	if err != nil {
		cleanup()
		return types.FileHandle{}, fmt.Errorf("download s3://%s/%s: %w", d.Bucket, key, err)
	}
	if closeErr != nil {
		cleanup()
		return types.FileHandle{}, closeErr
	}

	url := publicURL(d.PublicURL, key)
	if url == "" {
		url = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", d.Bucket, d.Region, key)
	}

	return types.FileHandle{
		Path:      tmp.Name(),
		Name:      name,
		Size:      n,
		ModTime:   time.Now(),
		Extension: ext,
		PublicURL: url,
		Cleanup:   cleanup,
	}, nil
}
