package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/NICValidator/internal/logging"
)

var (
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrCacheMiss is returned by a StatsCache when a key is absent.
	ErrCacheMiss = errors.New("cache miss")
)

// DefaultUploadHistoryLimit is used when UploadHistory is called with limit <= 0.
const DefaultUploadHistoryLimit = 50

// MaxUploadHistoryLimit caps UploadHistory.
const MaxUploadHistoryLimit = 500

const (
	cacheKeyDaily  = "stats:daily:%s:%d" // UTC date, window
	cacheKeyGender = "stats:gender"
)

// ListRecords returns one page of stored records matching filter.
// Zero Page and PageSize take their defaults.
func (s *Service) ListRecords(ctx context.Context, filter RecordFilter) (*RecordPage, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = s.reportCfg.DefaultPageSize
	}
	filter.FileName = strings.TrimSpace(filter.FileName)

	if err := s.validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, describeValidation(err))
	}

	page, err := s.store.ListRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return page, nil
}

// DailyStats returns per-day, per-gender record counts for the last days
// days, including today. days <= 0 uses the configured window.
func (s *Service) DailyStats(ctx context.Context, days int) ([]DailyGenderCount, error) {
	if days <= 0 {
		days = s.reportCfg.StatsDays
	}

	now := s.now()
	var counts []DailyGenderCount
	key := fmt.Sprintf(cacheKeyDaily, now.UTC().Format(time.DateOnly), days)
	if s.cacheGet(ctx, key, &counts) {
		return counts, nil
	}

	counts, err := s.store.DailyGenderCounts(ctx, days, now)
	if err != nil {
		return nil, fmt.Errorf("daily gender counts: %w", err)
	}
	s.cacheSet(ctx, key, counts)
	return counts, nil
}

// GenderDistribution returns the number of stored records per gender.
func (s *Service) GenderDistribution(ctx context.Context) ([]GenderCount, error) {
	var counts []GenderCount
	if s.cacheGet(ctx, cacheKeyGender, &counts) {
		return counts, nil
	}

	counts, err := s.store.GenderDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("gender distribution: %w", err)
	}
	s.cacheSet(ctx, cacheKeyGender, counts)
	return counts, nil
}

// UploadHistory returns the most recent upload entries, newest first.
func (s *Service) UploadHistory(ctx context.Context, limit int) ([]UploadEntry, error) {
	if limit <= 0 {
		limit = DefaultUploadHistoryLimit
	}
	limit = min(limit, MaxUploadHistoryLimit)

	entries, err := s.store.ListUploads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return entries, nil
}

// cacheGet reports whether dest was filled from the cache. Cache errors
// other than a miss are logged and treated as a miss.
func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrCacheMiss) {
		logging.FromContext(ctx).Warn("stats cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logging.FromContext(ctx).Warn("stats cache write failed", "key", key, "error", err)
	}
}

// describeValidation turns validator errors into "field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
