// Package storage archives relay run reports: the full report to S3 and a
// queryable summary to DynamoDB. Either backend may be left unconfigured.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/leadfunnel/internal/awsclient"
	"github.com/ignite/leadfunnel/internal/config"
	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// ErrNoLedger is returned by RecentRuns when no DynamoDB table is configured.
var ErrNoLedger = errors.New("run ledger not configured")

// Storage implements relay.Archiver.
type Storage struct {
	archive *ReportArchive
	ledger  *RunLedger

	s3Client *s3.Client
	bucket   string
}

// New wires the configured backends. It returns nil, nil when storage is
// disabled.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	awsCfg, err := awsclient.Load(ctx, awsclient.Options{
		Region:  cfg.AWSRegion,
		Profile: cfg.GetAWSProfile(),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing AWS storage: %w", err)
	}

	var (
		archive  *ReportArchive
		s3Client *s3.Client
	)
	if cfg.S3Bucket != "" {
		s3Client = s3.NewFromConfig(awsCfg)
		archive = NewReportArchive(s3Client, cfg.S3Bucket, cfg.S3Prefix)
	}
	var ledger *RunLedger
	if cfg.DynamoDBTable != "" {
		ledger = NewRunLedger(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)
	}
	logger.Info("report storage enabled", "bucket", cfg.S3Bucket, "table", cfg.DynamoDBTable)
	st := NewStorage(archive, ledger)
	st.s3Client, st.bucket = s3Client, cfg.S3Bucket
	return st, nil
}

// NewStorage combines an archive and a ledger. Either may be nil.
func NewStorage(archive *ReportArchive, ledger *RunLedger) *Storage {
	return &Storage{archive: archive, ledger: ledger}
}

// S3 returns the archive client and bucket for health probes, or nil when
// no bucket is configured.
func (s *Storage) S3() (*s3.Client, string) {
	if s == nil || s.s3Client == nil {
		return nil, ""
	}
	return s.s3Client, s.bucket
}

// Archive writes r to every configured backend. Both are attempted even if
// the first fails.
func (s *Storage) Archive(ctx context.Context, r *domain.RelayReport, text string) error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.archive != nil {
		if err := s.archive.Put(ctx, r, text); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ledger != nil {
		if err := s.ledger.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecentRuns lists the latest run summaries from the ledger.
func (s *Storage) RecentRuns(ctx context.Context, limit int) ([]domain.RelayReport, error) {
	if s == nil || s.ledger == nil {
		return nil, ErrNoLedger
	}
	return s.ledger.Recent(ctx, limit)
}
