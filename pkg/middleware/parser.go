package middleware

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// ParseHTML wraps a response body in a goquery document, giving
// handlers jQuery-style selection over scraped HTML without each one
// reimplementing its own DOM walk. It is a helper handlers call
// directly on a scrapectx.Response rather than a chain hook, since
// parsing is a one-shot transform with no before/after request pairing.
func ParseHTML(resp *scrapectx.Response) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, model.NewError(model.KindHandlerError, "parse html", err)
	}
	return doc, nil
}

// ExtractLinks returns the href of every <a> tag in doc as written,
// skipping empty and javascript: hrefs; relative hrefs are not resolved.
func ExtractLinks(doc *goquery.Document) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if len(href) > len("javascript:") && href[:len("javascript:")] == "javascript:" {
			return
		}
		links = append(links, href)
	})
	return links
}
