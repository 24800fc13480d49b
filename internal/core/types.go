package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/NICValidator/internal/nic"
)

// RecordStore persists decoded records and serves report queries.
// Implemented by store.Store.
type RecordStore interface {
	// InsertRecords stores records, skipping identifiers that already exist.
	// It returns how many rows were inserted and how many were duplicates.
	InsertRecords(ctx context.Context, records []TaggedRecord) (inserted, duplicates int, err error)
	RecordUpload(ctx context.Context, entry UploadEntry) error

	ListRecords(ctx context.Context, filter RecordFilter) (*RecordPage, error)
	DailyGenderCounts(ctx context.Context, days int, now time.Time) ([]DailyGenderCount, error)
	GenderDistribution(ctx context.Context) ([]GenderCount, error)
	ListUploads(ctx context.Context, limit int) ([]UploadEntry, error)

	Ping(ctx context.Context) error
}

// StatsCache caches dashboard aggregates. Implemented by cache.Stats.
type StatsCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// Observer receives processing events, e.g. for metrics.
type Observer interface {
	ObserveDecode(reason nic.Reason)
	ObserveBatch(status BatchStatus, res *BatchResult)
}

// UploadFile is one file of a batch.
type UploadFile struct {
	Name   string
	Size   int64 // 0 if unknown
	Reader io.Reader
}

// TaggedRecord is a decoded record tagged with where it came from.
type TaggedRecord struct {
	nic.Record
	FileName string
	BatchID  string
}

// taggedRecordJSON is the wire shape of a TaggedRecord, matching StoredRecord.
type taggedRecordJSON struct {
	Identifier string     `json:"nic_number"`
	Birthday   string     `json:"birthday"`
	Age        int        `json:"age"`
	Gender     nic.Gender `json:"gender"`
	FileName   string     `json:"file_name"`
	BatchID    string     `json:"batch_id,omitempty"`
}

func (r TaggedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedRecordJSON{
		Identifier: r.Identifier,
		Birthday:   r.Birthday(),
		Age:        r.Age,
		Gender:     r.Gender,
		FileName:   r.FileName,
		BatchID:    r.BatchID,
	})
}

func (r *TaggedRecord) UnmarshalJSON(b []byte) error {
	var v taggedRecordJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	birth, err := time.Parse(time.DateOnly, v.Birthday)
	if err != nil {
		return fmt.Errorf("birthday: %w", err)
	}
	*r = TaggedRecord{
		Record: nic.Record{
			Identifier: v.Identifier,
			BirthDate:  birth,
			Age:        v.Age,
			Gender:     v.Gender,
		},
		FileName: v.FileName,
		BatchID:  v.BatchID,
	}
	return nil
}

// StoredRecord is a persisted record.
type StoredRecord struct {
	ID         int64      `json:"id"`
	Identifier string     `json:"nic_number"`
	BirthDate  time.Time  `json:"-"`
	Birthday   string     `json:"birthday"`
	Age        int        `json:"age"`
	Gender     nic.Gender `json:"gender"`
	FileName   string     `json:"file_name"`
	BatchID    string     `json:"batch_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Rejection describes one identifier that could not be decoded.
type Rejection struct {
	Line       int        `json:"line"`
	Identifier string     `json:"nic"`
	Reason     nic.Reason `json:"reason"`
	Message    string     `json:"message"`
	Code       string     `json:"code"`
}

// FileResult summarises one file of a batch.
type FileResult struct {
	FileName   string      `json:"file_name"`
	Checksum   string      `json:"checksum,omitempty"`
	TotalRows  int         `json:"total_rows"`
	Accepted   int         `json:"accepted"`
	Duplicates int         `json:"duplicates"`
	Rejections []Rejection `json:"rejections,omitempty"`
	Error      string      `json:"error,omitempty"` // set when the whole file was unreadable
	ErrorCode  string      `json:"error_code,omitempty"`

	records []TaggedRecord
}

// Rejected returns the number of rejected identifiers.
func (f FileResult) Rejected() int { return len(f.Rejections) }

// BatchStatus is the outcome of a batch.
type BatchStatus string

const (
	BatchComplete BatchStatus = "complete"
	BatchFailed   BatchStatus = "failed"
)

// BatchResult is returned by Service.ValidateBatch.
type BatchResult struct {
	BatchID    string         `json:"batch_id"`
	Files      []FileResult   `json:"files"`
	Records    []TaggedRecord `json:"data"` // accepted records of stored files, duplicates included
	Accepted   int            `json:"accepted"`
	Inserted   int            `json:"inserted"`
	Duplicates int            `json:"duplicates"`
	Rejected   int            `json:"rejected"`
	Duration   time.Duration  `json:"-"`
}

// RecordFilter selects stored records. Empty fields do not filter.
type RecordFilter struct {
	Gender   nic.Gender `validate:"omitempty,oneof=Male Female"`
	FileName string     `validate:"max=255"`
	Date     string     `validate:"omitempty,datetime=2006-01-02"` // created date
	Page     int        `validate:"min=1,max=1000000"`
	PageSize int        `validate:"min=1,max=500"`
}

// RecordPage is one page of stored records, newest first.
type RecordPage struct {
	Records    []StoredRecord `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// DailyGenderCount is the number of records created on Date for Gender.
type DailyGenderCount struct {
	Date   string     `json:"date"`
	Gender nic.Gender `json:"gender"`
	Count  int64      `json:"count"`
}

// GenderCount is the number of stored records for Gender.
type GenderCount struct {
	Gender nic.Gender `json:"gender"`
	Count  int64      `json:"count"`
}

// UploadEntry is the history row written for each processed file.
type UploadEntry struct {
	BatchID    string    `json:"batch_id"`
	FileName   string    `json:"file_name"`
	Checksum   string    `json:"checksum"`
	TotalRows  int       `json:"total_rows"`
	Accepted   int       `json:"accepted"`
	Duplicates int       `json:"duplicates"`
	Rejected   int       `json:"rejected"`
	ClientIP   string    `json:"client_ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
