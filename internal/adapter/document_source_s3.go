// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/models"
)

// s3API is the part of *s3.Client the document source uses.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3DocumentSource struct {
	client s3API
	bucket string
	logger *logger.Logger
}

// indirection for tests
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3DocumentSource returns a [DocumentSource] reading meta.ObjectKey from
// cfg.Bucket. Static credentials are used when cfg carries them, otherwise
// the default AWS credential chain. A non-empty cfg.Endpoint selects an
// S3-compatible store with path-style addressing.
func NewS3DocumentSource(ctx context.Context, cfg config.ClientDocuments, logger *logger.Logger) (DocumentSource, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("document bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3DocumentSource{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Open implements [DocumentSource]. The credential is not used: bucket
// access is governed by the AWS credentials.
func (s *s3DocumentSource) Open(ctx context.Context, meta models.DocumentMetadata, _ string) (*DocumentStream, error) {
	if meta.ObjectKey == "" {
		return nil, fmt.Errorf("%w: document %s has no object key", ErrNotFound, meta.OwnerEntityID)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(meta.ObjectKey),
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "s3DocumentSource.Open").
			Str("bucket", s.bucket).
			Str("key", meta.ObjectKey).
			Msg("failed to get document object")

		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrNotFound, s.bucket, meta.ObjectKey, err)
		}
		return nil, mapRequestError("get object", err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	mimeType := aws.ToString(out.ContentType)
	if meta.MimeType != "" {
		mimeType = meta.MimeType
	}

	return &DocumentStream{
		Body:     out.Body,
		Size:     size,
		MimeType: mimeType,
	}, nil
}

// NewDocumentSource picks the S3 source when a bucket is configured and the
// HTTP source otherwise.
func NewDocumentSource(ctx context.Context, docsCfg config.ClientDocuments, adapterCfg config.ClientAdapter, logger *logger.Logger) (DocumentSource, error) {
	if docsCfg.Bucket != "" {
		return NewS3DocumentSource(ctx, docsCfg, logger)
	}
	return NewHTTPDocumentSource(adapterCfg.HTTPAddress, logger)
}
