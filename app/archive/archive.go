// Package archive stores original uploads in S3 compatible object storage (AWS S3, Cloudflare R2, MinIO)
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/go-pkgz/lgr"
)

// Params defines bucket access
type Params struct {
	Endpoint  string // custom endpoint, e.g. https://<account>.r2.cloudflarestorage.com
	Region    string // "auto" for R2
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// putObjecter is the subset of s3.Client used for uploads
type putObjecter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads documents to a bucket
type S3 struct {
	client putObjecter
	bucket string
	prefix string
}

// NewS3 makes archive with static credentials. Empty region defaults to "auto".
func NewS3(ctx context.Context, p Params) (*S3, error) {
	if p.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if p.Region == "" {
		p.Region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(p.Region)}
	if p.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.AccessKey, p.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.Endpoint)
		}
		o.UsePathStyle = p.PathStyle
	})
	log.Printf("[INFO] archive uploads to bucket %s, endpoint %q", p.Bucket, p.Endpoint)
	return &S3{client: client, bucket: p.Bucket, prefix: strings.Trim(p.Prefix, "/")}, nil
}

// Save uploads data under prefix/yyyy/mm/dd/<id><ext> and returns the object key
func (a *S3) Save(ctx context.Context, id, name, contentType string, ts time.Time, data []byte) (string, error) {
	key := a.Key(id, name, ts)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{"original-name": sanitize(name)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to put %s to %s: %w", key, a.bucket, err)
	}
	log.Printf("[DEBUG] archived %q as %s/%s, %d bytes", name, a.bucket, key, len(data))
	return key, nil
}

// Key makes object key for the upload
func (a *S3) Key(id, name string, ts time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 6 || strings.ContainsAny(ext, " /\\") {
		ext = ""
	}
	return path.Join(a.prefix, ts.UTC().Format("2006/01/02"), id+ext)
}

// sanitize keeps printable ascii only, metadata values can't carry anything else
func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
