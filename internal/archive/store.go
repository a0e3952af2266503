package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/westek-leads/internal/leads"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store archives captured leads to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// LeadKey is the object key of a lead archived on day.
func LeadKey(day time.Time, leadID string) string {
	day = day.UTC()
	return fmt.Sprintf("leads/v1/by-date/%d/%02d/%02d/%s.json", day.Year(), day.Month(), day.Day(), leadID)
}

// ArchiveLead writes the lead as JSON to S3 and appends it to the manifest.
// The key is dated by the lead's creation time.
func (s *Store) ArchiveLead(ctx context.Context, lead *leads.Lead) error {
	if !s.Enabled() || lead == nil {
		return nil
	}

	archivedAt := s.now().UTC()
	day := lead.CreatedAt
	if day.IsZero() {
		day = archivedAt
	}
	record := LeadRecord{
		Version:        RecordVersion,
		LeadID:         lead.ID,
		Source:         lead.Source,
		ProjectScope:   lead.ProjectScope,
		Services:       lead.Services,
		Contact:        Contact{Name: lead.Name, Email: lead.Email, Phone: lead.Phone},
		PhoneHash:      HashPhone(lead.Phone),
		Message:        lead.Message,
		RecaptchaScore: lead.RecaptchaScore,
		Delivered:      lead.Delivered,
		CreatedAt:      lead.CreatedAt,
		ArchivedAt:     archivedAt,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	s3Key := LeadKey(day, lead.ID)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", s3Key, err)
	}

	s.logger.Info("archived lead to S3",
		"lead_id", lead.ID,
		"s3_key", s3Key,
		"source", lead.Source,
		"phone", RedactPhone(lead.Phone),
	)

	entry := ManifestEntry{
		LeadID:       lead.ID,
		S3Key:        s3Key,
		Source:       lead.Source,
		ProjectScope: lead.ProjectScope,
		ServiceCount: len(lead.Services),
		Delivered:    lead.Delivered,
		PhoneHash:    record.PhoneHash,
		ArchivedAt:   archivedAt.Format(time.RFC3339),
		Services:     lead.Services,
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		// the lead itself is already stored
		s.logger.Warn("failed to append manifest", "error", err, "lead_id", lead.ID)
	}

	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// Uses read-modify-write since S3 doesn't support append.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := s.now().UTC()
	manifestKey := fmt.Sprintf("leads/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		_ = getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		// overwriting here would drop the month's existing entries
		return fmt.Errorf("archive: get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}
