package content

import (
	"net/url"
	"strings"
)

// NormalizeAudioURL collapses repeated path separators after the scheme so
// storage URLs like https://host/podcasts//file.mp3 resolve.
func NormalizeAudioURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return collapseSlashes(trimmed)
	}
	parsed.Path = collapseSlashes(parsed.Path)
	if parsed.RawPath != "" {
		parsed.RawPath = collapseSlashes(parsed.RawPath)
	}
	return parsed.String()
}

func collapseSlashes(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}
