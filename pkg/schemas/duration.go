package schemas

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration wraps time.Duration with JSON support for strings and numbers
type Duration struct {
	time.Duration
}

// MarshalJSON encodes the duration as a Go duration string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "1m30s", "PT1M30S" or a number of seconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err == nil {
		d.Duration = time.Duration(secs * float64(time.Second))
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

var isoPart = regexp.MustCompile(`(\d+)([HMS])`)

// ParseDuration parses a Go duration ("1h30m") or an ISO 8601 time
// duration ("PT1H30M")
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if rest, ok := strings.CutPrefix(s, "PT"); ok && rest != "" {
		var d time.Duration
		consumed := 0
		for _, match := range isoPart.FindAllStringSubmatch(rest, -1) {
			value, _ := strconv.Atoi(match[1])
			switch match[2] {
			case "H":
				d += time.Duration(value) * time.Hour
			case "M":
				d += time.Duration(value) * time.Minute
			case "S":
				d += time.Duration(value) * time.Second
			}
			consumed += len(match[0])
		}
		if consumed == len(rest) {
			return d, nil
		}
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}
