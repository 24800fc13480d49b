package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/NICValidator/internal/core"
	"github.com/JonMunkholm/NICValidator/internal/nic"
)

var (
	insertRecordSQL = fmt.Sprintf(`INSERT INTO %s
		(nic_number, birthday, age, gender, file_name, batch_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
		ON CONFLICT (nic_number) DO NOTHING`, quoteIdentifier(recordsTable))

	selectRecordColumns = `id, nic_number, birthday, age, gender, file_name,
		COALESCE(batch_id::text, ''), created_at`
)

// InsertRecords inserts records in one transaction. Identifiers that are
// already stored, or repeated within records, are counted as duplicates.
func (s *Store) InsertRecords(ctx context.Context, records []core.TaggedRecord) (inserted, duplicates int, err error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertRecordSQL,
			r.Identifier,
			r.BirthDate,
			r.Age,
			string(r.Gender),
			r.FileName,
			r.BatchID,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, 0, fmt.Errorf("insert %s: %w", records[i].Identifier, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, len(records) - inserted, nil
}

// ListRecords returns a page of records, newest first.
func (s *Store) ListRecords(ctx context.Context, filter core.RecordFilter) (*core.RecordPage, error) {
	wb := NewWhereBuilder()
	wb.Add("gender", string(filter.Gender))
	wb.AddContains("file_name", filter.FileName)
	if filter.Date != "" {
		day, err := time.Parse(time.DateOnly, filter.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", filter.Date, err)
		}
		wb.AddTimestampRange("created_at", day, day.AddDate(0, 0, 1))
	}
	whereClause, args := wb.Build()

	page := &core.RecordPage{
		Records:  []core.StoredRecord{},
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdentifier(recordsTable), whereClause)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	page.TotalPages = int((page.Total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	if page.Total == 0 {
		return page, nil
	}

	argIndex := wb.NextArgIndex()
	query := fmt.Sprintf(
		"SELECT %s FROM %s%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		selectRecordColumns,
		quoteIdentifier(recordsTable),
		whereClause,
		argIndex,
		argIndex+1,
	)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	records, err := queryRecords(ctx, s.pool, query, args...)
	if err != nil {
		return nil, err
	}
	page.Records = records
	return page, nil
}

func queryRecords(ctx context.Context, db DBTX, query string, args ...any) ([]core.StoredRecord, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []core.StoredRecord
	for rows.Next() {
		var r core.StoredRecord
		var gender string
		if err := rows.Scan(&r.ID, &r.Identifier, &r.BirthDate, &r.Age, &gender, &r.FileName, &r.BatchID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Gender = nic.Gender(gender)
		r.Birthday = r.BirthDate.Format(time.DateOnly)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// DailyGenderCounts counts records per UTC day and gender over the last
// days days ending on now's date, oldest first. Days without records are
// omitted.
func (s *Store) DailyGenderCounts(ctx context.Context, days int, now time.Time) ([]core.DailyGenderCount, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	y, m, d := now.UTC().Date()
	since := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	query := fmt.Sprintf(`SELECT to_char((created_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day,
			gender, COUNT(*)
		FROM %s
		WHERE created_at >= $1
		GROUP BY day, gender
		ORDER BY day, gender`, quoteIdentifier(recordsTable))

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer rows.Close()

	counts := []core.DailyGenderCount{}
	for rows.Next() {
		var c core.DailyGenderCount
		var gender string
		if err := rows.Scan(&c.Date, &gender, &c.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		c.Gender = nic.Gender(gender)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// GenderDistribution counts all records per gender.
func (s *Store) GenderDistribution(ctx context.Context) ([]core.GenderCount, error) {
	query := fmt.Sprintf("SELECT gender, COUNT(*) FROM %s GROUP BY gender ORDER BY gender",
		quoteIdentifier(recordsTable))

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query gender distribution: %w", err)
	}
	defer rows.Close()

	counts := []core.GenderCount{}
	for rows.Next() {
		var c core.GenderCount
		var gender string
		if err := rows.Scan(&gender, &c.Count); err != nil {
			return nil, fmt.Errorf("scan gender count: %w", err)
		}
		c.Gender = nic.Gender(gender)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
