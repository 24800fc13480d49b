package core

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/JonMunkholm/NICValidator/internal/config"
	"github.com/JonMunkholm/NICValidator/internal/nic"
)

var testNow = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			FilesPerBatch: 4,
			FileWorkers:   2,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Report: config.ReportConfig{
			StatsDays:       7,
			DefaultPageSize: 50,
		},
	}
}

func newTestService(store RecordStore, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	svc, err := NewService(store, testConfig(), opts...)
	if err != nil {
		panic(err)
	}
	return svc
}

// memStore is an in-memory RecordStore.
type memStore struct {
	mu      sync.Mutex
	records map[string]TaggedRecord
	uploads []UploadEntry

	insertErr error
	uploadErr error
	pingErr   error

	lastFilter  RecordFilter
	lastDays    int
	lastNow     time.Time
	dailyCalls  int
	genderCalls int
	daily       []DailyGenderCount
	genders     []GenderCount
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]TaggedRecord)}
}

func (m *memStore) InsertRecords(_ context.Context, records []TaggedRecord) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, 0, m.insertErr
	}
	var inserted, duplicates int
	for _, r := range records {
		if _, ok := m.records[r.Identifier]; ok {
			duplicates++
			continue
		}
		m.records[r.Identifier] = r
		inserted++
	}
	return inserted, duplicates, nil
}

func (m *memStore) RecordUpload(_ context.Context, entry UploadEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploads = append(m.uploads, entry)
	return nil
}

func (m *memStore) ListRecords(_ context.Context, filter RecordFilter) (*RecordPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter

	page := &RecordPage{Page: filter.Page, PageSize: filter.PageSize}
	for _, r := range m.records {
		if filter.Gender != "" && r.Gender != filter.Gender {
			continue
		}
		page.Records = append(page.Records, StoredRecord{
			Identifier: r.Identifier,
			BirthDate:  r.BirthDate,
			Birthday:   r.Birthday(),
			Age:        r.Age,
			Gender:     r.Gender,
			FileName:   r.FileName,
			BatchID:    r.BatchID,
		})
	}
	page.Total = int64(len(page.Records))
	return page, nil
}

func (m *memStore) DailyGenderCounts(_ context.Context, days int, now time.Time) ([]DailyGenderCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyCalls++
	m.lastDays = days
	m.lastNow = now
	return m.daily, nil
}

func (m *memStore) GenderDistribution(context.Context) ([]GenderCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.genderCalls++
	return m.genders, nil
}

func (m *memStore) ListUploads(_ context.Context, limit int) ([]UploadEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit < len(m.uploads) {
		return m.uploads[:limit], nil
	}
	return m.uploads, nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

// memCache is an in-memory StatsCache storing JSON like the Redis one.
type memCache struct {
	mu            sync.Mutex
	data          map[string][]byte
	invalidations int
	getErr        error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	b, ok := c.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.data = make(map[string][]byte)
	return nil
}

// recordingObserver captures observer events.
type recordingObserver struct {
	mu      sync.Mutex
	reasons []nic.Reason
	batches []BatchStatus
}

func (o *recordingObserver) ObserveDecode(reason nic.Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reasons = append(o.reasons, reason)
}

func (o *recordingObserver) ObserveBatch(status BatchStatus, _ *BatchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, status)
}
