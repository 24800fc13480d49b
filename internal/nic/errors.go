package nic

import (
	"errors"
	"fmt"
)

// Reason classifies why an identifier was rejected.
type Reason string

const (
	InvalidLength     Reason = "invalid_length"
	InvalidFormat     Reason = "invalid_format"
	InvalidDayOfYear  Reason = "invalid_day_of_year"
	BirthYearInFuture Reason = "birth_year_in_future"
)

// Sentinel errors, one per Reason. A *RejectionError matches its sentinel
// through errors.Is.
var (
	ErrInvalidLength     = errors.New("invalid nic length")
	ErrInvalidFormat     = errors.New("invalid nic format")
	ErrInvalidDayOfYear  = errors.New("invalid nic day of year")
	ErrBirthYearInFuture = errors.New("nic birth year in future")
)

// Reasons lists every rejection reason in a stable order.
func Reasons() []Reason {
	return []Reason{InvalidLength, InvalidFormat, InvalidDayOfYear, BirthYearInFuture}
}

func (r Reason) sentinel() error {
	switch r {
	case InvalidLength:
		return ErrInvalidLength
	case InvalidFormat:
		return ErrInvalidFormat
	case InvalidDayOfYear:
		return ErrInvalidDayOfYear
	case BirthYearInFuture:
		return ErrBirthYearInFuture
	default:
		return nil
	}
}

// RejectionError reports an identifier that could not be decoded.
type RejectionError struct {
	Identifier string
	Reason     Reason
	Detail     string
}

func (e *RejectionError) Error() string {
	msg := "nic rejected"
	if s := e.Reason.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s %q: %s", msg, e.Identifier, e.Detail)
	}
	return fmt.Sprintf("%s %q", msg, e.Identifier)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason.sentinel()
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

func reject(identifier string, reason Reason, format string, args ...any) *RejectionError {
	return &RejectionError{
		Identifier: identifier,
		Reason:     reason,
		Detail:     fmt.Sprintf(format, args...),
	}
}
