package presign

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultExpiry is applied when Presign is given the zero Expiry.
const DefaultExpiry = 15 * time.Minute

type expiryKind int

const (
	kindDefault expiryKind = iota
	kindAbsolute
	kindDuration
	kindExpression
)

// Expiry describes when a presigned URL stops being valid. The zero value
// means "DefaultExpiry from now".
type Expiry struct {
	kind expiryKind
	unix int64
	dur  time.Duration
	expr string
}

// At expires the URL at a fixed Unix timestamp.
func At(unix int64) Expiry { return Expiry{kind: kindAbsolute, unix: unix} }

// In expires the URL d after signing.
func In(d time.Duration) Expiry { return Expiry{kind: kindDuration, dur: d} }

// Relative expires the URL at a time expression resolved at signing, for
// example "+5 minutes", "-1 hour", "+1 day 2 hours" or "90s". An all-digit
// expression is taken as an absolute Unix timestamp.
func Relative(expr string) Expiry { return Expiry{kind: kindExpression, expr: expr} }

// Resolve returns the Unix timestamp this expiry denotes relative to now.
func (e Expiry) Resolve(now time.Time, fallback time.Duration) (int64, error) {
	switch e.kind {
	case kindAbsolute:
		return e.unix, nil
	case kindDuration:
		return now.Add(e.dur).Unix(), nil
	case kindExpression:
		d, abs, err := parseExpression(e.expr)
		if err != nil {
			return 0, err
		}
		if abs != nil {
			return *abs, nil
		}
		return now.Add(d).Unix(), nil
	default:
		return now.Add(fallback).Unix(), nil
	}
}

var (
	termPattern = regexp.MustCompile(`([+-]?)\s*(\d+)\s*([a-zA-Z]+)`)

	units = map[string]time.Duration{
		"sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
		"min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
		"hour": time.Hour, "hours": time.Hour,
		"day": 24 * time.Hour, "days": 24 * time.Hour,
		"week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	}
)

// parseExpression understands a sequence of "[+-]N unit" terms, Go duration
// syntax, "now", or a bare integer timestamp (returned via abs).
func parseExpression(expr string) (time.Duration, *int64, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return 0, nil, fmt.Errorf("presign: empty expiry expression")
	}
	if strings.EqualFold(s, "now") {
		return 0, nil, nil
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return 0, &ts, nil
	}
	if d, err := time.ParseDuration(strings.TrimPrefix(s, "+")); err == nil {
		return d, nil, nil
	}

	var (
		total time.Duration
		last  int
	)
	for _, m := range termPattern.FindAllStringSubmatchIndex(s, -1) {
		if strings.TrimSpace(s[last:m[0]]) != "" {
			return 0, nil, fmt.Errorf("presign: invalid expiry expression %q", expr)
		}
		last = m[1]

		n, err := strconv.ParseInt(s[m[4]:m[5]], 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("presign: invalid expiry expression %q: %w", expr, err)
		}
		unit, ok := units[strings.ToLower(s[m[6]:m[7]])]
		if !ok {
			return 0, nil, fmt.Errorf("presign: unknown unit %q in expiry expression", s[m[6]:m[7]])
		}
		d := time.Duration(n) * unit
		if s[m[2]:m[3]] == "-" {
			d = -d
		}
		total += d
	}
	if last == 0 || strings.TrimSpace(s[last:]) != "" {
		return 0, nil, fmt.Errorf("presign: invalid expiry expression %q", expr)
	}

	return total, nil, nil
}
