package keysource

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GetObjectAPI is the part of the S3 client used by S3Source.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) GetObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Options configures NewS3Source.
//
// BaseEndpoint points the client at an S3-compatible store such as MinIO and
// switches to path-style addressing. When AccessKeyID is empty the default
// AWS credential chain is used.
type S3Options struct {
	Location        Location
	BaseEndpoint    string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Source reads the settings object from S3.
type S3Source struct {
	client   GetObjectAPI
	location Location
}

// NewS3Source builds an S3 client for opts.
func NewS3Source(ctx context.Context, opts S3Options) (*S3Source, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Location.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3SourceWithClient(client, opts.Location), nil
}

// NewS3SourceWithClient uses an existing client.
func NewS3SourceWithClient(client GetObjectAPI, location Location) *S3Source {
	return &S3Source{client: client, location: location}
}

// Location returns where the settings are read from.
func (s *S3Source) Location() Location { return s.location }

// Fetch downloads the settings object and returns the PEM public key.
func (s *S3Source) Fetch(ctx context.Context) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.location.Bucket),
		Key:    aws.String(s.location.Key),
	})
	if err != nil {
		return "", fmt.Errorf("keysource: get %s: %w", s.location, err)
	}
	if out.Body == nil {
		return "", fmt.Errorf("keysource: read %s: %w", s.location, ErrEmptyConfig)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("keysource: read %s: %w", s.location, err)
	}

	key, err := PEMFromConfig(data)
	if err != nil {
		return "", fmt.Errorf("keysource: %s: %w", s.location, err)
	}
	return key, nil
}
