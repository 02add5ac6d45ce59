package exporter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/dvloznov/budget-report/internal/gcsuploader"
	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/report"
)

// ArchivingExporter renders through another exporter and keeps a copy of
// every document in a storage bucket.
type ArchivingExporter struct {
	next    report.Exporter
	storage gcsuploader.StorageService
	bucket  string
	prefix  string
}

// NewArchivingExporter wraps next. Objects are written below prefix in bucket.
func NewArchivingExporter(next report.Exporter, storage gcsuploader.StorageService, bucket, prefix string) *ArchivingExporter {
	return &ArchivingExporter{
		next:    next,
		storage: storage,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
	}
}

// Export renders r and uploads the result. A failed upload fails the export.
func (e *ArchivingExporter) Export(ctx context.Context, r *report.Report) (*report.Document, error) {
	doc, err := e.next.Export(ctx, r)
	if err != nil {
		return nil, err
	}

	object := e.ObjectName(r.Recipient, doc.Filename)
	uri, err := e.storage.UploadBytes(ctx, e.bucket, object, doc.ContentType, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("Export: archive %s: %w", object, err)
	}
	doc.Location = uri

	log := logger.FromContext(ctx)
	log.Info().
		Str("recipient", string(r.Recipient)).
		Str("location", uri).
		Msg("Archived report")

	return doc, nil
}

// ObjectName is "<prefix>/<first 16 hex chars of sha256(recipient)>/<filename>".
// Addresses never appear in object names.
func (e *ArchivingExporter) ObjectName(recipient report.Recipient, filename string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(string(recipient))))
	return path.Join(e.prefix, hex.EncodeToString(sum[:8]), filename)
}

var _ report.Exporter = (*ArchivingExporter)(nil)
