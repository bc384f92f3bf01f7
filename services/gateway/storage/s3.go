// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage provides object-store access for the gateway service.
//
// # Description
//
// The gateway serves archive PDFs out of a single S3 bucket. This package
// wraps the AWS SDK behind a small ObjectStore interface so that handlers
// can be tested against an in-memory store.
//
// # Thread Safety
//
// The S3 client is safe for concurrent use. All methods honor the passed
// context for cancellation and deadlines.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotFound indicates the requested key does not exist in the bucket.
	ErrNotFound = errors.New("object not found")

	// ErrEmptyObject indicates the object exists but has no bytes.
	ErrEmptyObject = errors.New("object is empty")
)

// =============================================================================
// Interface Definition
// =============================================================================

// Object is a fully read bucket object.
type Object struct {
	// Body holds the complete object bytes.
	Body []byte

	// ContentType is the MIME type reported by the store.
	// Defaults to application/octet-stream when the store reports none.
	ContentType string

	// Size is the object size in bytes.
	Size int64
}

// ObjectStore is the retrieval contract the gateway handlers depend on.
//
// # Description
//
// Two operations cover both gateway endpoints: a full read for inline
// delivery and a presigned link for redirect delivery. Implementations
// must map a missing key to ErrNotFound and a zero-byte object to
// ErrEmptyObject.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// GetObject reads the object at key in full.
	GetObject(ctx context.Context, key string) (*Object, error)

	// PresignGetObject returns a time-limited GET URL for the object
	// at key, without reading any bytes.
	PresignGetObject(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// =============================================================================
// S3 Implementation
// =============================================================================

// Config holds the credentials and bucket for the S3-backed store.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// S3Store implements ObjectStore against an S3 bucket.
type S3Store struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3Store builds an S3-backed store with static credentials.
//
// # Inputs
//
//   - ctx: Context for AWS configuration loading.
//   - cfg: Region, credentials, and bucket. All fields are required;
//     callers validate before construction.
//
// # Outputs
//
//   - *S3Store: Ready-to-use store.
//   - error: Non-nil if the AWS configuration cannot be assembled.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		bucket:  cfg.Bucket,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

// GetObject reads the object at key in full.
func (s *S3Store) GetObject(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object body %s: %w", key, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyObject, key)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}

	return &Object{
		Body:        body,
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

// PresignGetObject returns a presigned GET URL for the object at key.
// Each call produces a fresh signature.
func (s *S3Store) PresignGetObject(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presigning object %s: %w", key, err)
	}

	return req.URL, nil
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ ObjectStore = (*S3Store)(nil)
