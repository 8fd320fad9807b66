// Package models defines the core data structures used throughout ComTracker.
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Article is a single record returned by an upstream content service.
// Field names follow the wire format of the services (hence "langue").
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Date        string `json:"date"`              // raw timestamp as sent upstream
	Author      string `json:"author,omitempty"`
	Service     string `json:"service,omitempty"` // human-readable source label
	Country     string `json:"country,omitempty"` // two-letter code, e.g. "sn"
	Langue      string `json:"langue,omitempty"`  // ISO 639-1 code, e.g. "fr"
}

// maxEpochMillis bounds numeric dates to the range JavaScript dates accept.
const maxEpochMillis = 8.64e15

// UnmarshalJSON accepts a date sent as a string or as epoch milliseconds.
// Numeric dates are stored as RFC 3339; other JSON types leave Date empty.
func (a *Article) UnmarshalJSON(data []byte) error {
	type plain Article
	var wire struct {
		plain
		Date json.RawMessage `json:"date"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = Article(wire.plain)
	a.Date = dateString(wire.Date)
	return nil
}

func dateString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case c == '-' || (c >= '0' && c <= '9'):
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || math.Abs(ms) > maxEpochMillis {
			return string(raw)
		}
		return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Text returns the title and description joined by a space, as used for
// keyword scoring.
func (a Article) Text() string {
	return a.Title + " " + a.Description
}

// WithService returns a copy of the article stamped with the given source label.
func (a Article) WithService(label string) Article {
	a.Service = label
	return a
}

// SearchCriteria holds the user-entered filters of a search.
type SearchCriteria struct {
	Query   string `json:"query,omitempty"`
	Exclude string `json:"exclude,omitempty"`
	Country string `json:"country,omitempty"`
	Lang    string `json:"lang,omitempty"`
	Start   string `json:"start,omitempty"` // YYYY-MM-DD, inclusive
	End     string `json:"end,omitempty"`   // YYYY-MM-DD, inclusive through 23:59:59
}

// Normalize returns a copy with country and lang lower-cased and every field
// trimmed.
func (c SearchCriteria) Normalize() SearchCriteria {
	return SearchCriteria{
		Query:   strings.TrimSpace(c.Query),
		Exclude: strings.TrimSpace(c.Exclude),
		Country: strings.ToLower(strings.TrimSpace(c.Country)),
		Lang:    strings.ToLower(strings.TrimSpace(c.Lang)),
		Start:   strings.TrimSpace(c.Start),
		End:     strings.TrimSpace(c.End),
	}
}

// IsZero reports whether no filter is set.
func (c SearchCriteria) IsZero() bool {
	return c == SearchCriteria{}
}
