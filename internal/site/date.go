package site

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate interprets a front matter date value. Missing or unparsable
// values yield the zero time.Unix(0, 0) so ordering stays total.
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case *time.Time:
		if d != nil {
			return *d, true
		}
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Unix(0, 0).UTC(), false
}

// Date returns the item's parsed date, falling back to the epoch.
func (it *Item) Date() time.Time {
	var v any
	if it != nil && it.FrontMatter != nil {
		v = it.FrontMatter[FieldDate]
	}
	t, _ := ParseDate(v)
	return t
}
