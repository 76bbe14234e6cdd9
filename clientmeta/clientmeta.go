// Package clientmeta derives optional client metadata from request headers.
//
// Four headers are recognized. Each contributes at most one field and each is
// validated on its own: a malformed header is dropped (and reported) without
// affecting the others. A request carrying none of them yields an empty
// Metadata, which is not an error.
package clientmeta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ggoodman/mcp-session-go/hostctx"
	"github.com/tidwall/gjson"
)

// Canonical header names. Lookups are case-insensitive; these spellings are
// used as keys of Metadata.RawHeaders.
const (
	HeaderRegion      = "X-Client-Region"
	HeaderAgent       = "X-Client-Agent"
	HeaderTimestamp   = "X-Client-Timestamp"
	HeaderPreferences = "X-Client-Preferences"
)

// ErrMalformed is matched by every *MalformedError.
var ErrMalformed = errors.New("malformed client metadata")

// MalformedError describes a header that was present but failed validation.
type MalformedError struct {
	Header string
	Value  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s header %q: %s", e.Header, e.Value, e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// Metadata is a partial record: a field is set only when its header was
// present and valid.
type Metadata struct {
	Region      string            `json:"region,omitempty"`
	AgentName   string            `json:"agent_name,omitempty"`
	Timestamp   *float64          `json:"timestamp,omitempty"`
	Preferences map[string]any    `json:"preferences,omitempty"`
	RawHeaders  map[string]string `json:"raw_headers,omitempty"`
}

// IsEmpty reports whether no header contributed a field.
func (m Metadata) IsEmpty() bool { return len(m.RawHeaders) == 0 }

// Parse extracts metadata and returns every validation problem found.
func Parse(h hostctx.Headers) (Metadata, []error) {
	var (
		md   Metadata
		errs []error
	)
	raw := func(name, v string) {
		if md.RawHeaders == nil {
			md.RawHeaders = make(map[string]string, 4)
		}
		md.RawHeaders[name] = v
	}

	if v := h.Value(HeaderRegion); v != "" {
		md.Region = v
		raw(HeaderRegion, v)
	}
	if v := h.Value(HeaderAgent); v != "" {
		md.AgentName = v
		raw(HeaderAgent, v)
	}
	if v := h.Value(HeaderTimestamp); v != "" {
		ts, err := parseTimestamp(v)
		if err != nil {
			errs = append(errs, &MalformedError{Header: HeaderTimestamp, Value: v, Reason: err.Error()})
		} else {
			md.Timestamp = &ts
			raw(HeaderTimestamp, v)
		}
	}
	if v := h.Value(HeaderPreferences); v != "" {
		prefs, err := parsePreferences(v)
		if err != nil {
			errs = append(errs, &MalformedError{Header: HeaderPreferences, Value: v, Reason: err.Error()})
		} else {
			md.Preferences = prefs
			raw(HeaderPreferences, v)
		}
	}
	return md, errs
}

func parseTimestamp(v string) (float64, error) {
	ts, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	// NaN and infinities cannot be stored as JSON.
	if math.IsNaN(ts) || math.IsInf(ts, 0) {
		return 0, errors.New("not a finite number")
	}
	return ts, nil
}

func parsePreferences(v string) (map[string]any, error) {
	if !gjson.Valid(v) {
		return nil, errors.New("invalid JSON")
	}
	res := gjson.Parse(v)
	if !res.IsObject() {
		return nil, errors.New("JSON value is not an object")
	}
	prefs, ok := res.Value().(map[string]any)
	if !ok {
		return nil, errors.New("JSON value is not an object")
	}
	return prefs, nil
}

// Extractor logs validation problems instead of returning them.
type Extractor struct {
	log *slog.Logger
}

// NewExtractor returns an Extractor logging to log (discarded when nil).
func NewExtractor(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{log: log}
}

// Extract never fails.
func (e *Extractor) Extract(ctx context.Context, h hostctx.Headers) Metadata {
	md, errs := Parse(h)
	for _, err := range errs {
		var me *MalformedError
		if errors.As(err, &me) {
			e.log.WarnContext(ctx, "clientmeta.malformed", slog.String("header", me.Header), slog.String("reason", me.Reason))
			continue
		}
		e.log.WarnContext(ctx, "clientmeta.malformed", slog.String("err", err.Error()))
	}
	return md
}
