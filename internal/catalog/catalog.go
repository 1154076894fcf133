// Package catalog turns decoded video info into an ordered list of
// downloadable stream variants.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"vidgrab/internal/query"
)

// Field names used by the info endpoint.
const (
	FieldStatus    = "status"
	FieldTitle     = "title"
	FieldReason    = "reason"
	FieldErrorCode = "errorcode"
	FieldStreamMap = "url_encoded_fmt_stream_map"

	StreamURL     = "url"
	StreamType    = "type"
	StreamQuality = "quality"

	StatusOK = "ok"
)

var (
	ErrVideoUnavailable     = errors.New("video unavailable")
	ErrMalformedMetadata    = fmt.Errorf("%w: metadata", query.ErrMalformedInput)
	ErrNoStreams            = errors.New("no streams")
	ErrMalformedStream      = errors.New("malformed stream")
	ErrUnrecognizedMimeType = errors.New("unrecognized mime type")
)

// Metadata is the decoded info response after its status has been checked.
type Metadata struct {
	fields query.Map
}

// NewMetadata validates a decoded info response. A status other than "ok"
// is reported before anything else is inspected.
func NewMetadata(m query.Map) (Metadata, error) {
	status, ok := m.Lookup(FieldStatus)
	if !ok || status != StatusOK {
		return Metadata{}, unavailable(m, status)
	}
	if _, ok := m.Lookup(FieldTitle); !ok {
		return Metadata{}, fmt.Errorf("%w: missing %q", ErrMalformedMetadata, FieldTitle)
	}
	return Metadata{fields: m}, nil
}

func unavailable(m query.Map, status string) error {
	if status == "" {
		status = "<missing>"
	}
	msg := fmt.Sprintf("status %s", status)
	if code := m.Get(FieldErrorCode); code != "" {
		msg += fmt.Sprintf(" (code %s)", code)
	}
	if reason := strings.TrimSpace(m.Get(FieldReason)); reason != "" {
		msg += ": " + reason
	}
	return fmt.Errorf("%w: %s", ErrVideoUnavailable, msg)
}

// Title returns the video title as reported by the host.
func (md Metadata) Title() string {
	return md.fields.Get(FieldTitle)
}

// Stream is one decoded stream descriptor.
type Stream struct {
	URL       string
	MimeType  string
	Quality   string
	Extension string
}

// Entry pairs a stream with the ordinal a user selects it by.
type Entry struct {
	Ordinal int
	Stream
}

// Catalog is the immutable, ordered list of streams for one video.
type Catalog struct {
	entries []Entry
}

// Build enumerates the stream map in field order, numbering from 1.
func Build(meta Metadata) (Catalog, error) {
	raw, ok := meta.fields.Lookup(FieldStreamMap)
	if !ok {
		return Catalog{}, fmt.Errorf("%w: %q field absent", ErrNoStreams, FieldStreamMap)
	}
	var entries []Entry
	for _, segment := range strings.Split(raw, ",") {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		s, err := parseStream(segment)
		if err != nil {
			return Catalog{}, fmt.Errorf("stream %d: %w", len(entries)+1, err)
		}
		entries = append(entries, Entry{Ordinal: len(entries) + 1, Stream: s})
	}
	if len(entries) == 0 {
		return Catalog{}, fmt.Errorf("%w: %q is empty", ErrNoStreams, FieldStreamMap)
	}
	return Catalog{entries: entries}, nil
}

func parseStream(segment string) (Stream, error) {
	fields, err := query.Decode(segment)
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}
	for _, key := range []string{StreamURL, StreamType, StreamQuality} {
		if _, ok := fields.Lookup(key); !ok {
			return Stream{}, fmt.Errorf("%w: missing %q", ErrMalformedStream, key)
		}
	}
	mime := fields.Get(StreamType)
	ext, err := ExtensionFromMime(mime)
	if err != nil {
		return Stream{}, err
	}
	return Stream{
		URL:       fields.Get(StreamURL),
		MimeType:  mime,
		Quality:   fields.Get(StreamQuality),
		Extension: ext,
	}, nil
}

// ExtensionFromMime returns the MIME subtype, e.g. "mp4" for
// `video/mp4; codecs="avc1.64001F, mp4a.40.2"`.
func ExtensionFromMime(mime string) (string, error) {
	_, sub, ok := strings.Cut(mime, "/")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedMimeType, mime)
	}
	sub, _, _ = strings.Cut(sub, ";")
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", fmt.Errorf("%w: %q has no subtype", ErrUnrecognizedMimeType, mime)
	}
	return sub, nil
}

// Len returns the number of entries.
func (c Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in ordinal order.
func (c Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get returns the entry with the given ordinal.
func (c Catalog) Get(ordinal int) (Entry, bool) {
	if ordinal < 1 || ordinal > len(c.entries) {
		return Entry{}, false
	}
	return c.entries[ordinal-1], true
}
