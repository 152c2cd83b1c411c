package postproc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var dateLayouts = []string{
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05Z07:00",
	"2006:01:02 15:04:05.999999999-07:00",
	"2006:01:02 15:04:05",
	"2006:01:02",
	"Mon Jan _2 15:04:05 2006 MST",
	"Mon Jan _2 15:04:05 2006",
	time.RFC3339Nano,
	time.RFC3339,
}

var pdfDateLayouts = []string{
	"20060102150405-0700",
	"20060102150405Z0700",
	"20060102150405Z",
	"20060102150405",
	"200601021504",
	"20060102",
}

// toTimestamp converts a date string into Unix seconds. Values without a zone are read
// as UTC.
func toTimestamp(value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("empty date")
	}
	if isUnixSeconds(value) {
		return value, nil
	}

	t, err := parseDate(value)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}
	return strconv.FormatInt(t.Unix(), 10), nil
}

func parseDate(value string) (time.Time, error) {
	if strings.HasPrefix(value, "D:") {
		pdf := strings.ReplaceAll(strings.TrimPrefix(value, "D:"), "'", "")
		for _, layout := range pdfDateLayouts {
			if t, err := time.ParseInLocation(layout, pdf, time.UTC); err == nil {
				return t, nil
			}
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}

	return dateparse.ParseIn(value, time.UTC)
}

func isUnixSeconds(value string) bool {
	if len(value) > 11 {
		return false
	}
	for i, r := range value {
		if r == '-' && i == 0 && len(value) > 1 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
