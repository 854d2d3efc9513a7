// Package youtube parses video identifiers out of the URL shapes people paste.
package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrEmptyURL     = errors.New("youtube: empty url")
	ErrMalformedURL = errors.New("youtube: malformed url")
	ErrNoVideoID    = errors.New("youtube: no video id in url")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID extracts the 11-character video id from watch, short, live, embed
// and youtu.be URLs.
func VideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrMalformedURL
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(segs) >= 1 && segs[0] == "watch":
			id = u.Query().Get("v")
		case len(segs) >= 2 && (segs[0] == "shorts" || segs[0] == "embed" || segs[0] == "live" || segs[0] == "v"):
			id = segs[1]
		}
	default:
		return "", ErrMalformedURL
	}
	if !videoIDPattern.MatchString(id) {
		return "", ErrNoVideoID
	}
	return id, nil
}

// Canonical returns the canonical watch URL for a video id.
func Canonical(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func firstSegment(p string) string {
	p = strings.Trim(p, "/")
	if idx := strings.Index(p, "/"); idx != -1 {
		return p[:idx]
	}
	return p
}
