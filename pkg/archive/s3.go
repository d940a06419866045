// FixtureLink Core
// Copyright (c) 2026 The FixtureLink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FixtureLink Core.
//
// FixtureLink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FixtureLink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FixtureLink Core.  If not, see <http://www.gnu.org/licenses/>.

package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/rs/zerolog/log"
)

const defaultS3Region = "us-east-1"

type s3PutAPI interface {
	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
}

// S3Destination uploads exports to an S3 compatible bucket.
type S3Destination struct {
	client s3PutAPI
	bucket string
	prefix string
}

// NewS3Destination builds a client from the export settings.
func NewS3Destination(cfg config.S3Export) (*S3Destination, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 export requires a bucket")
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		if o.Region == "" {
			o.Region = defaultS3Region
		}
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			)
		}
	})

	return &S3Destination{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (d *S3Destination) Name() string {
	return "s3://" + path.Join(d.bucket, d.prefix)
}

func (d *S3Destination) key(name string) string {
	if d.prefix == "" {
		return name
	}
	return d.prefix + "/" + name
}

// Create buffers the container and uploads it on Close.
func (d *S3Destination) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	return &s3Object{ctx: ctx, dest: d, key: d.key(name)}, nil
}

type s3Object struct {
	ctx  context.Context //nolint:containedctx // upload happens on Close
	dest *S3Destination
	key  string
	buf  bytes.Buffer
}

func (o *s3Object) Write(p []byte) (int, error) {
	n, err := o.buf.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to buffer export: %w", err)
	}
	return n, nil
}

func (o *s3Object) Close() error {
	_, err := o.dest.client.PutObject(o.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.dest.bucket),
		Key:           aws.String(o.key),
		Body:          bytes.NewReader(o.buf.Bytes()),
		ContentLength: aws.Int64(int64(o.buf.Len())),
		ContentType:   aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", o.dest.bucket, o.key, err)
	}
	log.Info().Str("bucket", o.dest.bucket).Str("key", o.key).Msg("uploaded export")
	return nil
}
