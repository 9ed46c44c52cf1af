package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// multipartThreshold is the report size above which uploads go through the
// multipart manager.
const multipartThreshold = 8 * 1024 * 1024

// ReportWriter is the upload side the archiver needs. *Writer satisfies it.
type ReportWriter interface {
	domain.BlobWriter
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Report is one archived scan cycle.
type Report struct {
	Summary       domain.ScanSummary         `json:"summary"`
	Opportunities []domain.OpportunityRecord `json:"opportunities"`
}

// Archiver writes one JSON report per scan cycle, partitioned by day:
//
//	{prefix}/2026/03/01/{cycle_id}.json
type Archiver struct {
	writer ReportWriter
	reader domain.BlobReader
	prefix string
}

// NewArchiver creates an Archiver. reader may be nil if reports are never
// read back.
func NewArchiver(writer ReportWriter, reader domain.BlobReader, prefix string) *Archiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "scans"
	}
	return &Archiver{writer: writer, reader: reader, prefix: prefix}
}

// ArchiveCycle uploads the cycle report and returns its path.
func (a *Archiver) ArchiveCycle(ctx context.Context, summary domain.ScanSummary, records []domain.OpportunityRecord) (string, error) {
	if records == nil {
		records = []domain.OpportunityRecord{}
	}
	data, err := json.Marshal(Report{Summary: summary, Opportunities: records})
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal report %s: %w", summary.CycleID, err)
	}

	path := a.reportPath(summary.StartedAt, summary.CycleID)
	if len(data) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(data), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive cycle %s: %w", summary.CycleID, err)
	}
	return path, nil
}

// Reports lists the reports archived on the given day.
func (a *Archiver) Reports(ctx context.Context, day time.Time) ([]domain.BlobInfo, error) {
	if a.reader == nil {
		return nil, nil
	}
	return a.reader.List(ctx, a.dayPrefix(day))
}

// Report loads one archived report by path.
func (a *Archiver) Report(ctx context.Context, path string) (Report, error) {
	if a.reader == nil {
		return Report{}, domain.ErrNotFound
	}
	if !strings.HasPrefix(path, a.prefix+"/") {
		return Report{}, fmt.Errorf("s3blob: report %s: %w", path, domain.ErrNotFound)
	}
	body, err := a.reader.Get(ctx, path)
	if err != nil {
		return Report{}, err
	}
	defer body.Close()

	var r Report
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("s3blob: decode report %s: %w", path, err)
	}
	return r, nil
}

func (a *Archiver) dayPrefix(day time.Time) string {
	return a.prefix + "/" + day.UTC().Format("2006/01/02") + "/"
}

func (a *Archiver) reportPath(started time.Time, cycleID string) string {
	if started.IsZero() {
		started = time.Now()
	}
	return a.dayPrefix(started) + cycleID + ".json"
}
