package core

// batch.go validates a batch of uploaded CSV files.
//
// Files are decoded in parallel (bounded by Upload.FileWorkers) and then
// stored one after another in upload order, so an identifier repeated across
// files is always reported as a duplicate in the later file.

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/NICValidator/internal/logging"
	"github.com/JonMunkholm/NICValidator/internal/nic"
)

var (
	ErrNoFiles        = errors.New("no file provided")
	ErrWrongFileCount = errors.New("wrong number of files in batch")
)

// ValidateBatch decodes every identifier in files, stores the accepted ones
// and records an upload history entry per file.
//
// Problems with a single file (too large, not CSV, no nic column) are
// reported on its FileResult and do not affect the others. Store failures,
// cancellation and the batch timeout fail the whole batch.
func (s *Service) ValidateBatch(ctx context.Context, files []UploadFile) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if want := s.uploadCfg.FilesPerBatch; want > 0 && len(files) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongFileCount, len(files), want)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.uploadCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadCfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result := &BatchResult{
		BatchID: uuid.NewString(),
		Files:   make([]FileResult, len(files)),
		Records: []TaggedRecord{},
	}
	log := logging.WithFields(ctx, "batch_id", result.BatchID, "files", len(files))

	if err := s.decodeFiles(ctx, files, result); err != nil {
		return s.failBatch(log, result, start, err)
	}
	if err := s.storeFiles(ctx, result); err != nil {
		return s.failBatch(log, result, start, err)
	}

	if result.Inserted > 0 && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warn("stats cache invalidation failed", "error", err)
		}
	}

	result.Duration = time.Since(start)
	s.observer.ObserveBatch(BatchComplete, result)
	log.Info("batch complete",
		"accepted", result.Accepted,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) failBatch(log *slog.Logger, result *BatchResult, start time.Time, err error) (*BatchResult, error) {
	result.Duration = time.Since(start)
	s.observer.ObserveBatch(BatchFailed, result)
	log.Error("batch failed", "error", err, "duration", result.Duration)
	return nil, fmt.Errorf("batch %s: %w", result.BatchID, err)
}

// decodeFiles fills result.Files concurrently.
func (s *Service) decodeFiles(ctx context.Context, files []UploadFile, result *BatchResult) error {
	refYear := s.referenceYear()

	g, gctx := errgroup.WithContext(ctx)
	if s.uploadCfg.FileWorkers > 0 {
		g.SetLimit(s.uploadCfg.FileWorkers)
	}
	for i, f := range files {
		g.Go(func() error {
			res, err := s.processFile(gctx, f, result.BatchID, refYear)
			result.Files[i] = res
			return err
		})
	}
	return g.Wait()
}

// processFile decodes one file. The returned error is non-nil only when ctx
// ended; file-level problems are recorded on the FileResult.
func (s *Service) processFile(ctx context.Context, f UploadFile, batchID string, refYear int) (FileResult, error) {
	res := FileResult{FileName: f.Name}
	limit := s.uploadCfg.MaxFileSize

	if limit > 0 && f.Size > limit {
		res.fail(fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, f.Size, limit))
		return res, nil
	}
	if f.Reader == nil {
		res.fail(ErrEmptyFile)
		return res, nil
	}

	hasher := xxhash.New()
	reader, counter := WrapForStreaming(io.TeeReader(f.Reader, hasher), limit)

	err := scanIdentifiers(ctx, reader, func(line int, identifier string) {
		res.TotalRows++
		rec, err := nic.Decode(identifier, refYear)
		s.observeDecode(err)
		if err != nil {
			res.Rejections = append(res.Rejections, newRejection(line, identifier, err))
			return
		}
		res.records = append(res.records, TaggedRecord{Record: rec, FileName: f.Name, BatchID: batchID})
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.fail(err)
		return res, nil
	}

	res.Accepted = len(res.records)
	res.Checksum = hex.EncodeToString(hasher.Sum(nil))
	logging.FromContext(ctx).Debug("file decoded",
		"file", f.Name,
		"bytes", counter.BytesRead,
		"rows", res.TotalRows,
		"accepted", res.Accepted,
	)
	return res, nil
}

// storeFiles inserts each file's records and writes its history entry.
func (s *Service) storeFiles(ctx context.Context, result *BatchResult) error {
	clientIP := ClientIPFromContext(ctx)

	for i := range result.Files {
		f := &result.Files[i]
		result.Rejected += f.Rejected()
		if f.Error != "" {
			continue
		}

		inserted, duplicates, err := s.store.InsertRecords(ctx, f.records)
		if err != nil {
			return fmt.Errorf("insert records from %s: %w", f.FileName, err)
		}
		f.Duplicates = duplicates

		entry := UploadEntry{
			BatchID:    result.BatchID,
			FileName:   f.FileName,
			Checksum:   f.Checksum,
			TotalRows:  f.TotalRows,
			Accepted:   f.Accepted,
			Duplicates: duplicates,
			Rejected:   f.Rejected(),
			ClientIP:   clientIP,
			CreatedAt:  s.now().UTC(),
		}
		if err := s.store.RecordUpload(ctx, entry); err != nil {
			return fmt.Errorf("record upload of %s: %w", f.FileName, err)
		}

		result.Records = append(result.Records, f.records...)
		result.Accepted += f.Accepted
		result.Inserted += inserted
		result.Duplicates += duplicates
		f.records = nil
	}
	return nil
}

// fail marks the whole file as unreadable and drops partial results.
func (f *FileResult) fail(err error) {
	msg := MapError(err)
	f.Error = msg.Message
	f.ErrorCode = msg.Code
	f.Accepted = 0
	f.Rejections = nil
	f.records = nil
}

func newRejection(line int, identifier string, err error) Rejection {
	msg := MapError(err)
	reason, _ := nic.ReasonOf(err)
	return Rejection{
		Line:       line,
		Identifier: identifier,
		Reason:     reason,
		Message:    msg.Message,
		Code:       msg.Code,
	}
}
