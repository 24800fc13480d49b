// Error codes reference.
//
// Errors shown to clients carry a short code that support staff can look up
// here. Codes are grouped by category:
//
// # Identifier Rejections (NIC001-NIC099)
//
//	NIC001 - Invalid length: identifier is not 10 or 13 characters
//	NIC002 - Invalid format: year or day segment is not all digits
//	NIC003 - Invalid day of year: day is outside the encoded year
//	NIC004 - Birth year in future: encoded year is after the current year
//
// # Database Errors (DB001-DB099)
//
//	DB004 - Connection refused: unable to connect to database
//	DB005 - Connection reset: database connection was interrupted
//	DB006 - Timeout: operation timed out
//	DB007 - Deadlock: database was busy with conflicting operations
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date: date filter is not YYYY-MM-DD
//	VAL004 - Missing column: the nic column is missing from the CSV
//	VAL007 - Invalid filter: a query parameter is out of range
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: file exceeds the upload size limit
//	FILE002 - Invalid CSV: file could not be parsed as CSV
//	FILE004 - No file: no file was attached
//	FILE005 - Empty file: file has no header row
//	FILE006 - Wrong file count: batch has the wrong number of files
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: too many batches in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: too many requests
//
// # Default (ERR000)
//
// Fallback when nothing matches. Check the logs for the underlying error.
//
// Sentinel errors are matched first with errors.Is. Anything else falls back
// to case-insensitive substring patterns, first match wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/NICValidator/internal/nic"
)

// UserMessage is an error as shown to a client.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var (
	msgInvalidLength = UserMessage{
		Message: "Identifier must be 10 or 13 characters long",
		Action:  "Check the identifier for missing or extra characters",
		Code:    "NIC001",
	}
	msgInvalidFormat = UserMessage{
		Message: "Identifier contains non-digit characters where digits are required",
		Action:  "The year and day-of-year positions must be digits",
		Code:    "NIC002",
	}
	msgInvalidDay = UserMessage{
		Message: "Identifier encodes a day that does not exist in its year",
		Action:  "Check the day-of-year digits",
		Code:    "NIC003",
	}
	msgFutureYear = UserMessage{
		Message: "Identifier encodes a birth year in the future",
		Action:  "Check the year digits",
		Code:    "NIC004",
	}
	msgMissingColumn = UserMessage{
		Message: "Required column is missing from CSV",
		Action:  `Add a header row with a "nic" column`,
		Code:    "VAL004",
	}
	msgInvalidFilter = UserMessage{
		Message: "Invalid query parameter",
		Action:  "Check the gender, date and paging parameters",
		Code:    "VAL007",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with properly closed quotes",
		Code:    "FILE002",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select CSV files to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}
	msgWrongFileCount = UserMessage{
		Message: "Wrong number of files in batch",
		Action:  "Upload the expected number of files together",
		Code:    "FILE006",
	}
	msgTooManyUploads = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCanceled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try uploading smaller files or check your connection",
		Code:    "UPL005",
	}
)

// errorSentinels are checked with errors.Is, in order.
var errorSentinels = []struct {
	target error
	msg    UserMessage
}{
	{nic.ErrInvalidLength, msgInvalidLength},
	{nic.ErrInvalidFormat, msgInvalidFormat},
	{nic.ErrInvalidDayOfYear, msgInvalidDay},
	{nic.ErrBirthYearInFuture, msgFutureYear},
	{ErrMissingColumn, msgMissingColumn},
	{ErrInvalidFilter, msgInvalidFilter},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrInvalidCSV, msgInvalidCSV},
	{ErrNoFiles, msgNoFile},
	{ErrEmptyFile, msgEmptyFile},
	{ErrWrongFileCount, msgWrongFileCount},
	{ErrTooManyUploads, msgTooManyUploads},
	{context.Canceled, msgCanceled},
	{context.DeadlineExceeded, msgDeadline},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors from drivers and the network that carry no
// sentinel. Specific patterns go before general ones.
var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try uploading smaller files or try again later",
		Code:    "DB006",
	}},
	{"invalid date", UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY-MM-DD",
		Code:    "VAL001",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a client-facing message. A nil error maps
// to the zero UserMessage; an unrecognised one to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range errorSentinels {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
