package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomokif/linkvault/app/guard"
)

// scrape pulls OGP-style metadata out of an HTML document. Open Graph tags
// win, with twitter:* and plain HTML tags as fallbacks. Relative image URLs
// are resolved against the page URL.
func scrape(html []byte, pageURL *guard.ValidatedURL) (*Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	title := metaContent(doc,
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	description := metaContent(doc,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
		`meta[name="description"]`)

	image := metaContent(doc,
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`)
	if image != "" {
		if resolved, err := pageURL.Resolve(image); err == nil {
			image = resolved.String()
		}
	}

	if title == "" && description == "" && image == "" {
		return nil, fmt.Errorf("%w: no usable metadata in document", ErrExtraction)
	}

	return &Metadata{
		Title:       nilIfEmpty(title),
		Description: nilIfEmpty(description),
		Image:       nilIfEmpty(image),
	}, nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(content); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
