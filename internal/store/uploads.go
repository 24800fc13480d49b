package store

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/NICValidator/internal/core"
)

// RecordUpload writes one upload history row.
func (s *Store) RecordUpload(ctx context.Context, entry core.UploadEntry) error {
	return insertUpload(ctx, s.pool, entry)
}

func insertUpload(ctx context.Context, db DBTX, entry core.UploadEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(batch_id, file_name, checksum, total_rows, accepted, duplicates, rejected, client_ip, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`, quoteIdentifier(uploadsTable))

	_, err := db.Exec(ctx, query,
		entry.BatchID,
		entry.FileName,
		entry.Checksum,
		entry.TotalRows,
		entry.Accepted,
		entry.Duplicates,
		entry.Rejected,
		entry.ClientIP,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// ListUploads returns the most recent history rows, newest first.
func (s *Store) ListUploads(ctx context.Context, limit int) ([]core.UploadEntry, error) {
	query := fmt.Sprintf(`SELECT batch_id::text, file_name, checksum, total_rows, accepted,
			duplicates, rejected, COALESCE(client_ip, ''), created_at
		FROM %s
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, quoteIdentifier(uploadsTable))

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	entries := []core.UploadEntry{}
	for rows.Next() {
		var e core.UploadEntry
		if err := rows.Scan(
			&e.BatchID,
			&e.FileName,
			&e.Checksum,
			&e.TotalRows,
			&e.Accepted,
			&e.Duplicates,
			&e.Rejected,
			&e.ClientIP,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}
