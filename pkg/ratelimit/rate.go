package ratelimit

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidRate = errors.New("invalid rate limit")

// Rate is a request budget per window, e.g. 30 per 1 minute.
type Rate struct {
	Limit      int
	Multiplier int
	Unit       string
}

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// "30/minute", "30 per minute", "100/2 hours", "5 per 10 seconds"
var rateExpr = regexp.MustCompile(`^\s*(\d+)\s*(?:/|\s+per\s+)\s*(\d+)?\s*([a-zA-Z]+)\s*$`)

// ParseRate parses the RATE_LIMIT notation.
func ParseRate(s string) (Rate, error) {
	m := rateExpr.FindStringSubmatch(s)
	if m == nil {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}

	limit, err := strconv.Atoi(m[1])
	if err != nil || limit <= 0 {
		return Rate{}, fmt.Errorf("%w: limit must be a positive integer in %q", ErrInvalidRate, s)
	}

	multiplier := 1
	if m[2] != "" {
		multiplier, err = strconv.Atoi(m[2])
		if err != nil || multiplier <= 0 {
			return Rate{}, fmt.Errorf("%w: window multiplier must be positive in %q", ErrInvalidRate, s)
		}
	}

	unit := strings.TrimSuffix(strings.ToLower(m[3]), "s")
	if _, ok := units[unit]; !ok {
		return Rate{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidRate, m[3])
	}

	return Rate{Limit: limit, Multiplier: multiplier, Unit: unit}, nil
}

func (r Rate) Window() time.Duration {
	return time.Duration(r.Multiplier) * units[r.Unit]
}

func (r Rate) String() string {
	return fmt.Sprintf("%d per %d %s", r.Limit, r.Multiplier, r.Unit)
}
