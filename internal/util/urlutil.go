package util

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidVideoID = errors.New("invalid video id")

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	pathPrefixes   = []string{"/v/", "/vi/", "/embed/", "/e/", "/shorts/", "/live/"}
)

// ExtractVideoID accepts a bare video id or any of the common watch, embed
// and short-link URL shapes and returns the id.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidVideoID)
	}
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err == nil && (u.Scheme == "" || u.Host == "") {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidVideoID, raw)
	}

	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "youtu.be":
		id, _, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	case u.Query().Has("v"):
		id = u.Query().Get("v")
	default:
		for _, p := range pathPrefixes {
			if rest, ok := strings.CutPrefix(u.Path, p); ok {
				id, _, _ = strings.Cut(rest, "/")
				break
			}
		}
	}
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", ErrInvalidVideoID, raw)
	}
	return id, nil
}
