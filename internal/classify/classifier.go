// Package classify assigns a content kind to each fetched response.
//
// Decision order: the declared media type wins; on an ambiguous or missing
// media type, fall back to the URL path extension; on continued ambiguity,
// sniff the leading bytes before defaulting to Skip.
package classify

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Kind is the artifact type assigned to a fetched response.
type Kind string

// Artifact kinds. Skip is terminal: no checksum, no storage, no metadata row.
const (
	KindHTML  Kind = "HTML"
	KindPDF   Kind = "PDF"
	KindImage Kind = "Image"
	KindSkip  Kind = "Skip"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".svg":  {},
	".ico":  {},
}

// Classify tags a response as HTML, PDF, Image, or Skip.
func Classify(rawURL, contentType string, body []byte) Kind {
	if kind, ok := byMediaType(contentType); ok {
		return kind
	}
	if kind, ok := byExtension(rawURL); ok {
		return kind
	}
	if kind, ok := byMagicBytes(body); ok {
		return kind
	}
	return KindSkip
}

func byMediaType(contentType string) (Kind, bool) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return KindHTML, true
	case mediaType == "application/pdf":
		return KindPDF, true
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage, true
	}
	return KindSkip, false
}

func byExtension(rawURL string) (Kind, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return KindSkip, false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch {
	case ext == ".html" || ext == ".htm":
		return KindHTML, true
	case ext == ".pdf":
		return KindPDF, true
	default:
		if _, ok := imageExtensions[ext]; ok {
			return KindImage, true
		}
	}
	return KindSkip, false
}

func byMagicBytes(body []byte) (Kind, bool) {
	if len(body) == 0 {
		return KindSkip, false
	}
	if strings.HasPrefix(string(body[:min(5, len(body))]), "%PDF-") {
		return KindPDF, true
	}
	sniffed := http.DetectContentType(body)
	switch {
	case strings.HasPrefix(sniffed, "text/html"):
		return KindHTML, true
	case strings.HasPrefix(sniffed, "image/"):
		return KindImage, true
	}
	return KindSkip, false
}

// Extension returns the object-store file extension for an artifact. Images
// keep the extension of their source URL, defaulting to .jpeg when the URL
// carries none.
func Extension(rawURL string, kind Kind) string {
	switch kind {
	case KindHTML:
		return ".html"
	case KindPDF:
		return ".pdf"
	case KindImage:
		if u, err := url.Parse(rawURL); err == nil {
			ext := strings.ToLower(path.Ext(u.Path))
			if _, ok := imageExtensions[ext]; ok {
				return ext
			}
		}
		return ".jpeg"
	default:
		return ""
	}
}

// ContentType returns the media type to record on the stored raw object.
func ContentType(kind Kind, ext string) string {
	switch kind {
	case KindHTML:
		return "text/html; charset=utf-8"
	case KindPDF:
		return "application/pdf"
	case KindImage:
		switch ext {
		case ".png":
			return "image/png"
		case ".gif":
			return "image/gif"
		case ".webp":
			return "image/webp"
		case ".svg":
			return "image/svg+xml"
		case ".bmp":
			return "image/bmp"
		case ".ico":
			return "image/x-icon"
		default:
			return "image/jpeg"
		}
	default:
		return "application/octet-stream"
	}
}
