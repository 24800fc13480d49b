package nic

import (
	"time"
	"unicode/utf8"
)

// Gender is derived from the day ordinal of an identifier.
type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

// Format identifies which encoding an identifier uses.
type Format int

const (
	FormatLegacy Format = iota + 1 // 10 characters, two-digit year in the 1900s
	FormatModern                   // 13 characters, four-digit year
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatModern:
		return "modern"
	default:
		return "unknown"
	}
}

const (
	LegacyLength = 10
	ModernLength = 13

	// FemaleOffset is added to the day ordinal of female holders.
	FemaleOffset = 500

	// MaxDayOfYear is the largest ordinal any year can have.
	MaxDayOfYear = 366

	legacyCentury = 1900
)

// layout describes where the year and day segments sit in an identifier.
type layout struct {
	yearStart, yearEnd int
	dayStart, dayEnd   int
	century            int
}

var layouts = map[Format]layout{
	FormatLegacy: {yearStart: 0, yearEnd: 2, dayStart: 2, dayEnd: 5, century: legacyCentury},
	FormatModern: {yearStart: 0, yearEnd: 4, dayStart: 4, dayEnd: 7},
}

// FormatOf returns the encoding implied by the identifier's length.
func FormatOf(identifier string) (Format, bool) {
	switch utf8.RuneCountInString(identifier) {
	case LegacyLength:
		return FormatLegacy, true
	case ModernLength:
		return FormatModern, true
	default:
		return 0, false
	}
}

// Record is the demographic information encoded in an identifier.
type Record struct {
	Identifier string
	BirthDate  time.Time // midnight UTC
	Age        int
	Gender     Gender
}

// BirthYear returns the encoded year of birth.
func (r Record) BirthYear() int { return r.BirthDate.Year() }

// DayOfYear returns the 1-based day of the year of birth.
func (r Record) DayOfYear() int { return r.BirthDate.YearDay() }

// Birthday formats the birth date as YYYY-MM-DD.
func (r Record) Birthday() string { return r.BirthDate.Format(time.DateOnly) }

// Decode extracts the birth date, age and gender from identifier.
//
// Age is referenceYear minus the birth year with no month or day adjustment.
// A day ordinal of 366 is only accepted for leap years.
func Decode(identifier string, referenceYear int) (Record, error) {
	format, ok := FormatOf(identifier)
	if !ok {
		return Record{}, reject(identifier, InvalidLength,
			"got %d characters, want %d or %d",
			utf8.RuneCountInString(identifier), LegacyLength, ModernLength)
	}

	l := layouts[format]
	runes := []rune(identifier)

	year, ok := parseDigits(runes[l.yearStart:l.yearEnd])
	if !ok {
		return Record{}, reject(identifier, InvalidFormat,
			"year segment %q is not numeric", string(runes[l.yearStart:l.yearEnd]))
	}
	year += l.century

	ordinal, ok := parseDigits(runes[l.dayStart:l.dayEnd])
	if !ok {
		return Record{}, reject(identifier, InvalidFormat,
			"day segment %q is not numeric", string(runes[l.dayStart:l.dayEnd]))
	}

	gender, day := Male, ordinal
	if ordinal > FemaleOffset {
		gender, day = Female, ordinal-FemaleOffset
	}

	if day < 1 || day > MaxDayOfYear {
		return Record{}, reject(identifier, InvalidDayOfYear,
			"day %d outside 1-%d", day, MaxDayOfYear)
	}
	if day > DaysInYear(year) {
		return Record{}, reject(identifier, InvalidDayOfYear,
			"day %d but %d has %d days", day, year, DaysInYear(year))
	}

	age := referenceYear - year
	if age < 0 {
		return Record{}, reject(identifier, BirthYearInFuture,
			"birth year %d is after %d", year, referenceYear)
	}

	return Record{
		Identifier: identifier,
		BirthDate:  time.Date(year, time.January, day, 0, 0, 0, 0, time.UTC),
		Age:        age,
		Gender:     gender,
	}, nil
}

// DaysInYear returns 366 for Gregorian leap years and 365 otherwise.
func DaysInYear(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}

// parseDigits accepts ASCII digits only; signs and spaces are rejected.
func parseDigits(rs []rune) (int, bool) {
	if len(rs) == 0 {
		return 0, false
	}
	n := 0
	for _, r := range rs {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
