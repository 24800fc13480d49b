package nic

import (
	"errors"
	"fmt"
)

// LegacySuffix is the trailing letter written by Encode for legacy identifiers.
const LegacySuffix = 'V'

// Components are the parts Encode assembles into an identifier.
type Components struct {
	Year      int
	DayOfYear int
	Gender    Gender
	Serial    int
}

// Encode builds an identifier in the given format. It is the inverse of
// Decode and is used to produce synthetic identifiers.
func Encode(c Components, format Format) (string, error) {
	if !c.Gender.Valid() {
		return "", fmt.Errorf("encode: unknown gender %q", c.Gender)
	}
	if c.DayOfYear < 1 || c.DayOfYear > DaysInYear(c.Year) {
		return "", fmt.Errorf("encode: day %d invalid for year %d", c.DayOfYear, c.Year)
	}
	if c.Serial < 0 {
		return "", errors.New("encode: negative serial")
	}

	ordinal := c.DayOfYear
	if c.Gender == Female {
		ordinal += FemaleOffset
	}

	switch format {
	case FormatLegacy:
		if c.Year < legacyCentury || c.Year >= legacyCentury+100 {
			return "", fmt.Errorf("encode: year %d outside legacy range", c.Year)
		}
		if c.Serial > 9999 {
			return "", fmt.Errorf("encode: serial %d exceeds 4 digits", c.Serial)
		}
		return fmt.Sprintf("%02d%03d%04d%c", c.Year-legacyCentury, ordinal, c.Serial, LegacySuffix), nil
	case FormatModern:
		if c.Year < 0 || c.Year > 9999 {
			return "", fmt.Errorf("encode: year %d outside 4 digits", c.Year)
		}
		if c.Serial > 999999 {
			return "", fmt.Errorf("encode: serial %d exceeds 6 digits", c.Serial)
		}
		return fmt.Sprintf("%04d%03d%06d", c.Year, ordinal, c.Serial), nil
	default:
		return "", fmt.Errorf("encode: unknown format %d", format)
	}
}
