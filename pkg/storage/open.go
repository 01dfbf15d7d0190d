package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the connection settings for an S3-compatible endpoint.
type S3Config struct {
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty" json:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty" json:"secret_key,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty" json:"path_style,omitempty"`
}

// DefaultRegion is used when S3Config.Region is empty.
const DefaultRegion = "us-east-1"

// NewS3Client builds an s3.Client from static settings. Without an access
// key the request is sent anonymously.
func NewS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Source:          "captcha config",
		}
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}

// ParseS3URL splits "s3://bucket/prefix" into bucket and prefix.
func ParseS3URL(target string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(target, "s3://")
	if !found {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}

// Open returns the FileStore for target: "s3://bucket/prefix" selects an
// S3Store configured by cfg, anything else is a local directory.
func Open(target string, cfg S3Config) (FileStore, error) {
	if strings.HasPrefix(target, "s3://") {
		bucket, prefix, ok := ParseS3URL(target)
		if !ok {
			return nil, fmt.Errorf("%w: s3 target %q has no bucket", ErrInvalidPath, target)
		}
		return NewS3(NewS3Client(cfg), bucket, prefix), nil
	}
	if target == "" {
		target = "."
	}
	return NewLocal(target)
}
