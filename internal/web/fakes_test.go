package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/NICValidator/internal/config"
	"github.com/JonMunkholm/NICValidator/internal/core"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 16,
			FilesPerBatch: 2,
			FileWorkers:   2,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Report:   config.ReportConfig{StatsDays: 7, DefaultPageSize: 50},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

// memStore is an in-memory core.RecordStore.
type memStore struct {
	mu         sync.Mutex
	records    map[string]core.TaggedRecord
	uploads    []core.UploadEntry
	lastFilter core.RecordFilter
	lastDays   int
	pingErr    error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]core.TaggedRecord)}
}

func (m *memStore) InsertRecords(_ context.Context, records []core.TaggedRecord) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, r := range records {
		if _, ok := m.records[r.Identifier]; ok {
			continue
		}
		m.records[r.Identifier] = r
		inserted++
	}
	return inserted, len(records) - inserted, nil
}

func (m *memStore) RecordUpload(_ context.Context, entry core.UploadEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, entry)
	return nil
}

func (m *memStore) ListRecords(_ context.Context, filter core.RecordFilter) (*core.RecordPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	return &core.RecordPage{Records: []core.StoredRecord{}, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *memStore) DailyGenderCounts(_ context.Context, days int, _ time.Time) ([]core.DailyGenderCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDays = days
	return []core.DailyGenderCount{{Date: "2024-06-01", Gender: "Male", Count: 2}}, nil
}

func (m *memStore) GenderDistribution(context.Context) ([]core.GenderCount, error) {
	return []core.GenderCount{{Gender: "Female", Count: 1}, {Gender: "Male", Count: 2}}, nil
}

func (m *memStore) ListUploads(_ context.Context, limit int) ([]core.UploadEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit < len(m.uploads) {
		return m.uploads[:limit], nil
	}
	return m.uploads, nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func newTestServer(t *testing.T, cfg *config.Config, store *memStore, opts ...Option) *Server {
	t.Helper()
	svc, err := core.NewService(store, cfg, core.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	s := NewServer(svc, cfg, opts...)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// batchRequest builds a multipart request with one "files" part per entry.
func batchRequest(t *testing.T, files map[string]string, order ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/nic-validation/validate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
