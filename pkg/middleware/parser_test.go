package middleware

import (
	"testing"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

func TestExtractLinksSkipsEmptyAndJavascript(t *testing.T) {
	html := `<html><body>
		<a href="https://example.com/a">a</a>
		<a href="">empty</a>
		<a href="javascript:void(0)">js</a>
		<a href="/relative">relative</a>
	</body></html>`

	doc, err := ParseHTML(&scrapectx.Response{Body: []byte(html)})
	if err != nil {
		t.Fatal(err)
	}
	links := ExtractLinks(doc)
	want := []string{"https://example.com/a", "/relative"}
	if len(links) != len(want) {
		t.Fatalf("links = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}

func TestParseHTMLAcceptsEmptyBody(t *testing.T) {
	// goquery/x/net's tokenizer is lenient; the meaningful contract here
	// is simply that a response with no body still parses into an empty
	// document rather than panicking.
	doc, err := ParseHTML(&scrapectx.Response{Body: nil})
	if err != nil {
		t.Fatal(err)
	}
	if len(ExtractLinks(doc)) != 0 {
		t.Fatal("expected no links in an empty document")
	}
}
