package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/leadfunnel/internal/domain"
)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportArchive writes relay reports to S3 as a text rendering plus the
// JSON document, keyed by day and run id.
type ReportArchive struct {
	client S3API
	bucket string
	prefix string
}

// NewReportArchive creates an archive under bucket/prefix.
func NewReportArchive(client S3API, bucket, prefix string) *ReportArchive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ReportArchive{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key (without extension) for a report.
func (a *ReportArchive) Key(r *domain.RelayReport) string {
	return fmt.Sprintf("%s%s/%s", a.prefix, r.StartedAt.UTC().Format("2006/01/02"), r.RunID)
}

// Put stores both renderings of r.
func (a *ReportArchive) Put(ctx context.Context, r *domain.RelayReport, text string) error {
	key := a.Key(r)

	jsonData, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := a.put(ctx, key+".json", jsonData, "application/json"); err != nil {
		return err
	}
	return a.put(ctx, key+".txt", []byte(text), "text/plain; charset=utf-8")
}

func (a *ReportArchive) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object %s to S3: %w", key, err)
	}
	return nil
}
