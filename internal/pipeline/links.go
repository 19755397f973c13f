package pipeline

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageRefs holds the references extracted from one HTML page: outbound page
// links for the frontier and embedded binary assets (PDFs, images) ingested
// inline under the page's lineage.
type PageRefs struct {
	Links  []string
	Assets []string
}

// ExtractRefs parses the page and resolves every reference against baseURL.
// Anchors pointing at PDFs are assets (the original embeds them, it does
// not traverse them); all other http(s) anchors are outbound links; img
// sources are assets.
func ExtractRefs(baseURL string, body []byte) (PageRefs, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return PageRefs{}, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PageRefs{}, fmt.Errorf("parse html: %w", err)
	}

	var refs PageRefs
	seenLinks := make(map[string]struct{})
	seenAssets := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		resolved, ok := resolveRef(base, href)
		if !ok {
			return
		}
		if isPDFPath(resolved) {
			addRef(&refs.Assets, seenAssets, resolved)
			return
		}
		addRef(&refs.Links, seenLinks, resolved)
	})

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		resolved, ok := resolveRef(base, src)
		if !ok {
			return
		}
		addRef(&refs.Assets, seenAssets, resolved)
	})

	return refs, nil
}

func resolveRef(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}

func isPDFPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

func addRef(dst *[]string, seen map[string]struct{}, ref string) {
	if _, ok := seen[ref]; ok {
		return
	}
	seen[ref] = struct{}{}
	*dst = append(*dst, ref)
}
