package s3blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

type memBlobs struct {
	objects   map[string][]byte
	multipart int
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	m.objects[path] = b
	return err
}

func (m *memBlobs) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	m.multipart++
	return m.Put(ctx, path, data, "")
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for p, b := range m.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, domain.BlobInfo{Path: p, Size: int64(len(b))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func TestArchiveCycleRoundTrip(t *testing.T) {
	blobs := newMemBlobs()
	a := NewArchiver(blobs, blobs, "/reports/")
	started := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	summary := domain.ScanSummary{CycleID: "c1", StartedAt: started, Evaluated: 3, Opportunities: 1}

	path, err := a.ArchiveCycle(context.Background(), summary, []domain.OpportunityRecord{{ID: "o1", PairKey: "k"}})
	require.NoError(t, err)
	assert.Equal(t, "reports/2026/03/01/c1.json", path)
	assert.Zero(t, blobs.multipart)

	infos, err := a.Reports(context.Background(), started)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, path, infos[0].Path)

	r, err := a.Report(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "c1", r.Summary.CycleID)
	require.Len(t, r.Opportunities, 1)
	assert.Equal(t, "o1", r.Opportunities[0].ID)
}

func TestReportOutsidePrefix(t *testing.T) {
	blobs := newMemBlobs()
	blobs.objects["secrets/key.json"] = []byte("{}")
	a := NewArchiver(blobs, blobs, "")
	_, err := a.Report(context.Background(), "secrets/key.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArchiveEmptyCycle(t *testing.T) {
	blobs := newMemBlobs()
	a := NewArchiver(blobs, nil, "")
	path, err := a.ArchiveCycle(context.Background(), domain.ScanSummary{CycleID: "c2", StartedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "scans/2026/01/02/c2.json", path)
	assert.Contains(t, string(blobs.objects[path]), `"opportunities":[]`)

	infos, err := a.Reports(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, infos)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://e2.example.com", normaliseEndpoint("e2.example.com", true))
	assert.Equal(t, "http://minio.local:9000", normaliseEndpoint("minio.local:9000", false))
	assert.Equal(t, "https://e2.example.com", normaliseEndpoint("https://e2.example.com", false))
}
