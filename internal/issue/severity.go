package issue

import (
	"fmt"
	"strings"
)

// Severity classifies an Issue. The zero value is SeverityLow; higher values
// are more severe, so severities compare with the usual operators.
type Severity uint8

const (
	// SeverityLow is for low priority warnings, notes and infos.
	SeverityLow Severity = iota
	// SeverityNormal is the default warning level.
	SeverityNormal
	// SeverityHigh is for high priority warnings.
	SeverityHigh
	// SeverityError is for errors and fatal diagnostics.
	SeverityError
)

// Severities lists all canonical severities from most to least severe.
var Severities = []Severity{SeverityError, SeverityHigh, SeverityNormal, SeverityLow}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityNormal:
		return "NORMAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the four canonical severities.
func (s Severity) Valid() bool {
	return s <= SeverityError
}

// AtLeast returns true if s is as severe as min or more.
func (s Severity) AtLeast(min Severity) bool {
	return s >= min
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name as accepted by ParseSeverity.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses a canonical severity name. Both the short names
// (ERROR, HIGH, NORMAL, LOW) and the long warning forms (WARNING_HIGH,
// WARNING_NORMAL, WARNING_LOW) are accepted, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ERROR":
		return SeverityError, nil
	case "HIGH", "WARNING_HIGH":
		return SeverityHigh, nil
	case "NORMAL", "WARNING_NORMAL", "WARNING":
		return SeverityNormal, nil
	case "LOW", "WARNING_LOW":
		return SeverityLow, nil
	}
	return SeverityNormal, fmt.Errorf("unknown severity %q", name)
}

// GuessSeverity maps a free-form severity token found in tool output to a
// canonical severity. It never fails: tokens that are not recognized
// (including the empty string) map to SeverityNormal.
func GuessSeverity(token string) Severity {
	t := strings.ToLower(token)
	switch {
	case strings.Contains(t, "error"), strings.Contains(t, "fatal"), strings.Contains(t, "severe"):
		return SeverityError
	case strings.Contains(t, "high"):
		return SeverityHigh
	case strings.Contains(t, "low"), strings.Contains(t, "info"), strings.Contains(t, "note"):
		return SeverityLow
	}
	return SeverityNormal
}
