package handler

import (
	"context"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/middleware"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// HTMLLinksHandlerName is the built-in handler that fetches params.url
// and returns every link found on the page. It exists primarily as a
// worked example for scraper authors and as a smoke test for the
// middleware chain and parser helpers.
const HTMLLinksHandlerName = "html_links"

type htmlLinksParams struct {
	URL string `json:"url"`
}

func NewHTMLLinksHandler() Handler {
	return func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error) {
		var params htmlLinksParams
		if err := sctx.DecodeParams(&params); err != nil {
			return nil, err
		}
		if params.URL == "" {
			return nil, model.NewError(model.KindValidationError, "url is required", nil)
		}

		resp, err := sctx.Get(params.URL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, model.NewError(model.KindHandlerError, "unexpected status fetching url", nil)
		}

		doc, err := middleware.ParseHTML(resp)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"url":   params.URL,
			"links": middleware.ExtractLinks(doc),
		}, nil
	}
}
