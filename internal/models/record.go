package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column indices (0-based) of the data sheet. The sheet header is the single
// source of truth for row width; every persisted row is padded or truncated
// to it before any read or write.
const (
	ColURL = iota
	ColMetric
	ColTags
	ColAuthorURL
	ColAuthorMetric
	ColBiography
	ColBatch
	ColLabel
)

// Header returns the canonical data sheet header.
func Header() []string {
	return []string{
		"url",
		"metric",
		"tags",
		"author_url",
		"author_metric",
		"biography",
		"batch",
		"label",
	}
}

// Record is one normalized unit of scraped content mapped to the fixed
// table schema. URL is the deduplication key; Label stays empty until the
// labeling pass fills it.
type Record struct {
	URL          string
	Metric       string
	Tags         string
	AuthorURL    string
	AuthorMetric string
	Biography    string
	Batch        string
	Label        string
}

// Row renders the record as a sheet row in header order.
func (r Record) Row() []string {
	return []string{
		r.URL,
		r.Metric,
		r.Tags,
		r.AuthorURL,
		r.AuthorMetric,
		r.Biography,
		r.Batch,
		r.Label,
	}
}

// NormalizeRow pads or truncates a row to the given width.
func NormalizeRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// RawRecord is one untyped record as returned by the scraping provider.
// Providers return loosely shaped JSON objects whose field names vary by
// dataset, so extraction walks an explicit candidate list per target field,
// first non-empty wins.
type RawRecord map[string]any

// Field name candidates, in extraction order.
var (
	primaryKeyFields   = []string{"url", "video_url", "link"}
	metricFields       = []string{"views", "play_count", "playcount"}
	authorURLFields    = []string{"channel_url", "profile_url"}
	authorMetricFields = []string{"subscribers", "profile_followers", "followers"}
	biographyFields    = []string{"description", "profile_biography", "biography"}
	tagFields          = []string{"tags", "hashtags"}
)

// stringValue renders a raw field as a trimmed string. Numeric JSON values
// arrive as float64; whole numbers are rendered without a decimal point.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// firstString returns the first non-empty candidate field as a string.
func (r RawRecord) firstString(keys []string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if s := stringValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// PrimaryKey extracts the deduplication key. An empty result is not an
// error; keyless records bypass dedup handling upstream.
func (r RawRecord) PrimaryKey() string {
	return r.firstString(primaryKeyFields)
}

// serializedTags renders the record's tag list as a compact JSON array
// string, or "" when the record carries no tags.
func (r RawRecord) serializedTags() string {
	for _, k := range tagFields {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if strings.TrimSpace(s) == "" {
				continue
			}
			return s
		}
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		if string(b) == "[]" || string(b) == "null" {
			continue
		}
		return string(b)
	}
	return ""
}

// Normalize maps the raw record onto the fixed schema. The batch label is
// write-once, set here at ingestion time; the label column starts empty.
func (r RawRecord) Normalize(batch string) Record {
	return Record{
		URL:          r.PrimaryKey(),
		Metric:       r.firstString(metricFields),
		Tags:         r.serializedTags(),
		AuthorURL:    r.firstString(authorURLFields),
		AuthorMetric: NormalizeAuthorMetric(r.firstString(authorMetricFields)),
		Biography:    r.firstString(biographyFields),
		Batch:        batch,
	}
}

// NormalizeAuthorMetric converts follower-count shorthand ("12k", "3.4M",
// "1b") to a plain integer string. Values that cannot be interpreted pass
// through verbatim so no provider data is lost.
func NormalizeAuthorMetric(val string) string {
	s := strings.ReplaceAll(strings.TrimSpace(val), " ", "")
	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	multiplier := 1.0
	switch {
	case strings.HasSuffix(lower, "k"):
		multiplier = 1_000
		lower = strings.TrimSuffix(lower, "k")
	case strings.HasSuffix(lower, "m"):
		multiplier = 1_000_000
		lower = strings.TrimSuffix(lower, "m")
	case strings.HasSuffix(lower, "b"):
		multiplier = 1_000_000_000
		lower = strings.TrimSuffix(lower, "b")
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, lower)
	if cleaned == "" {
		return val
	}

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return val
	}
	return strconv.FormatInt(int64(math.Round(num*multiplier)), 10)
}
