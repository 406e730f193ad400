package registry

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrValidation = errors.New("validation failed")

// Validator checks a raw answer and returns the value to store.
type Validator func(raw any) (any, error)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidationError carries the reason shown to the citizen when an answer is
// rejected. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func asText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), true
	case fmt.Stringer:
		return strings.TrimSpace(v.String()), true
	default:
		return "", false
	}
}

// NonEmpty accepts any non-blank text.
func NonEmpty(raw any) (any, error) {
	s, ok := asText(raw)
	if !ok {
		return nil, Invalid("expected text, got %T", raw)
	}
	if s == "" {
		return nil, Invalid("value is required")
	}
	return s, nil
}

// Date accepts YYYY-MM-DD calendar dates.
func Date(raw any) (any, error) {
	s, ok := asText(raw)
	if !ok {
		return nil, Invalid("expected a date, got %T", raw)
	}
	if !datePattern.MatchString(s) {
		return nil, Invalid("date must use the YYYY-MM-DD format")
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return nil, Invalid("%s is not a calendar date", s)
	}
	return s, nil
}

// PositiveNumber accepts numbers greater than zero, given as numbers or text
// such as "1,250.50".
func PositiveNumber(raw any) (any, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		s, ok := asText(raw)
		if !ok {
			return nil, Invalid("expected a number, got %T", raw)
		}
		s = strings.ReplaceAll(s, ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, Invalid("%q is not a number", s)
		}
		n = parsed
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, Invalid("%v is not a finite number", raw)
	}
	if n <= 0 {
		return nil, Invalid("number must be greater than zero")
	}
	return n, nil
}

// Phone accepts 7 to 15 digits, ignoring spaces, dashes, dots, parentheses and
// a leading plus sign.
func Phone(raw any) (any, error) {
	s, ok := asText(raw)
	if !ok {
		return nil, Invalid("expected a phone number, got %T", raw)
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		case r == '+' && i == 0:
		default:
			return nil, Invalid("phone number contains %q", r)
		}
	}
	if digits < 7 || digits > 15 {
		return nil, Invalid("phone number must have 7 to 15 digits")
	}
	return s, nil
}
