package mapper

import (
	"fmt"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	// REST datetime, e.g. 2020-09-09T04:04:02.000+0000
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	// no timezone, e.g. 2020-09-09T04:04:02.257
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// parseTime accepts the date and datetime formats Salesforce emits
func parseTime(raw any) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("cannot assign %T to time.Time", raw)
	}
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time string: %s", s)
}
