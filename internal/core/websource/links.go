package websource

import (
	"net/url"
	"path"
	"strings"
)

var documentExts = []string{".pdf", ".doc", ".docx", ".odt", ".rtf"}

// pdfHintWords mark URLs that serve papers without a .pdf suffix,
// e.g. /download?id=12&type=pdf.
var pdfHintWords = []string{"download", "previous", "paper", "question", "exam"}

// DefaultQueries are used when a web job names neither queries nor URLs.
var DefaultQueries = []string{
	"SSC CGL previous year question paper filetype:pdf",
	"SSC CHSL previous year question paper filetype:pdf",
	"Railway NTPC previous year question paper filetype:pdf",
	"SSC GD constable previous year paper filetype:pdf",
	"RRB Group D previous year question paper filetype:pdf",
}

// looksLikeDocument accepts URLs with a document extension, or URLs that
// mention pdf alongside a paper-ish keyword.
func looksLikeDocument(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, e := range documentExts {
		if ext == e {
			return true
		}
	}
	lower := strings.ToLower(raw)
	if !strings.Contains(lower, "pdf") {
		return false
	}
	for _, w := range pdfHintWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence of every entry.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// filenameFromURL is the last path segment, or the host when there is none.
func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
		return base
	}
	return u.Host
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
