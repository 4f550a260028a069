// Package handler holds the scraping logic bound to each scraper via
// handler_name, plus the registry that resolves names to handlers and
// the sandboxed dynamic handler for ad-hoc Lua-defined scrapers.
package handler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// Handler scrapes something. Its result, if any, is marshalled onto the
// task's Result field; a returned error fails the task with Kind
// HandlerError unless the error already carries a more specific Kind.
type Handler func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error)

// Registry resolves scraper handler_name to a Handler. It is built once
// at startup and is safe for concurrent read-only lookups thereafter;
// Register after Freeze panics, matching the registry's intended
// immutable-after-boot lifecycle.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	frozen   bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic(fmt.Sprintf("handler: cannot register %q after registry is frozen", name))
	}
	r.handlers[name] = h
}

// Freeze marks the registry read-only, catching accidental registration
// races once the server starts taking traffic.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, model.NewError(model.KindNotFound, fmt.Sprintf("handler %q not registered", name), nil)
	}
	return h, nil
}

// Names returns the registered handler names in sorted order, backing
// the get_scraper_handlers API method.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
