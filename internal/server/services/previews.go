package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ErrStorageDisabled is returned by PresignPut when no bucket is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// PreviewStore hands out presigned URLs for quest preview images kept in an
// S3-compatible bucket.
type PreviewStore struct {
	cfg config.S3Config

	once   sync.Once
	client *s3.PresignClient
	err    error
}

func NewPreviewStore(cfg config.S3Config) *PreviewStore {
	return &PreviewStore{cfg: cfg}
}

// Enabled reports whether a bucket is configured.
func (p *PreviewStore) Enabled() bool {
	return p.cfg.Bucket != ""
}

// NewPreviewKey returns a fresh object key for a preview image.
// ext, if set, should include the leading dot.
func NewPreviewKey(ext string) string {
	d := time.Now()
	return fmt.Sprintf("quests/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (p *PreviewStore) presignClient() (*s3.PresignClient, error) {
	p.once.Do(func() {
		cfg, err := loadDefaultAWSConfig(context.Background(),
			awsconfig.WithRegion(p.cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				p.cfg.RootUser,
				p.cfg.RootPassword,
				"",
			)))
		if err != nil {
			p.err = err
			return
		}

		client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
			if p.cfg.BaseEndpoint != "" {
				o.BaseEndpoint = aws.String(p.cfg.BaseEndpoint)
				o.UsePathStyle = true
			}
		})
		p.client = newS3PresignClient(client)
	})
	return p.client, p.err
}

// ResolveURL returns ref unchanged when storage is disabled, ref is empty or
// ref is already an absolute URL. Otherwise ref is an object key and a
// presigned GET URL for it is returned.
func (p *PreviewStore) ResolveURL(ctx context.Context, ref string) (string, error) {
	if !p.Enabled() || ref == "" || isAbsoluteURL(ref) {
		return ref, nil
	}

	pc, err := p.presignClient()
	if err != nil {
		return "", err
	}

	bucket := p.cfg.Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &ref,
	}, s3.WithPresignExpires(p.cfg.PresignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignPut returns a presigned PUT URL for key.
func (p *PreviewStore) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	if !p.Enabled() {
		return "", ErrStorageDisabled
	}

	pc, err := p.presignClient()
	if err != nil {
		return "", err
	}

	bucket := p.cfg.Bucket
	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if contentType != "" {
		in.ContentType = &contentType
	}

	req, err := presignPutObject(pc, ctx, in, s3.WithPresignExpires(p.cfg.PresignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func isAbsoluteURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && u.Host != ""
}
