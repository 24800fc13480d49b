package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/NICValidator/internal/core"
	"github.com/JonMunkholm/NICValidator/internal/logging"
	"github.com/JonMunkholm/NICValidator/internal/nic"
)

// multipartMemory is how much of a batch form is kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// formOverhead allows for multipart boundaries and headers on top of the
// file payloads.
const formOverhead = 1 << 20

// maxBatchFilesUnbounded caps the request body when any file count is accepted.
const maxBatchFilesUnbounded = 16

var errInvalidForm = errors.New("invalid multipart form")

// handleValidate validates the CSV files posted in the "files" form field.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBatchBytes())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: request over %d bytes", core.ErrFileTooLarge, tooLarge.Limit),
				http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidForm, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]core.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(w, r, fmt.Errorf("open %s: %w", fh.Filename, err), http.StatusBadRequest)
			return
		}
		defer f.Close()
		files = append(files, core.UploadFile{Name: fh.Filename, Size: fh.Size, Reader: f})
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.ValidateBatch(ctx, files)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// maxBatchBytes bounds a whole batch request.
func (s *Server) maxBatchBytes() int64 {
	n := int64(s.cfg.Upload.FilesPerBatch)
	if n <= 0 {
		n = maxBatchFilesUnbounded
	}
	return n*s.cfg.Upload.MaxFileSize + formOverhead
}

type decodeRequest struct {
	NIC string `json:"nic"`
}

// DecodeResponse is the demographic data decoded from one identifier.
type DecodeResponse struct {
	NIC       string     `json:"nic"`
	Format    string     `json:"format"`
	Birthday  string     `json:"birthday"`
	BirthYear int        `json:"birth_year"`
	DayOfYear int        `json:"day_of_year"`
	Age       int        `json:"age"`
	Gender    nic.Gender `json:"gender"`
}

// handleDecode decodes a single identifier without storing it.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)

	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidForm, err), http.StatusBadRequest)
		return
	}

	identifier := core.CleanCell(req.NIC)
	rec, err := s.service.DecodeOne(identifier)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	format, _ := nic.FormatOf(rec.Identifier)
	writeJSON(w, http.StatusOK, DecodeResponse{
		NIC:       rec.Identifier,
		Format:    format.String(),
		Birthday:  rec.Birthday(),
		BirthYear: rec.BirthYear(),
		DayOfYear: rec.DayOfYear(),
		Age:       rec.Age,
		Gender:    rec.Gender,
	})
}

// handleListRecords returns one page of stored records.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := parseIntParam(r, "page")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	pageSize, err := parseIntParam(r, "page_size")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	result, err := s.service.ListRecords(r.Context(), core.RecordFilter{
		Gender:   parseGender(q.Get("gender")),
		FileName: q.Get("file_name"),
		Date:     strings.TrimSpace(q.Get("date")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDailyStats returns per-day gender counts for the last seven days.
func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.DailyStats(r.Context(), 7)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGenderDistribution returns the record count per gender.
func (s *Server) handleGenderDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := s.service.GenderDistribution(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

// handleUploadHistory returns the most recent upload history entries.
func (s *Server) handleUploadHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	entries, err := s.service.UploadHistory(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleUploadQueueStatus returns the current state of the upload limiter.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.UploadLimiterStatus())
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth pings every registered dependency.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK

	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// parseIntParam parses an optional integer query parameter. An empty value
// yields 0 so the service applies its default.
func parseIntParam(r *http.Request, name string) (int, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", core.ErrInvalidFilter, name)
	}
	return i, nil
}

// parseGender accepts gender names in any case. Unknown values pass through
// unchanged and are rejected by filter validation.
func parseGender(v string) nic.Gender {
	v = strings.TrimSpace(v)
	for _, g := range []nic.Gender{nic.Male, nic.Female} {
		if strings.EqualFold(v, string(g)) {
			return g
		}
	}
	return nic.Gender(v)
}
