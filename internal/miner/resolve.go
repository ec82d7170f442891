package miner

import (
	"context"
	"log"

	"github.com/rigmon/rigmon/internal/history"
	"github.com/rigmon/rigmon/internal/jsonpath"
)

// Lookup resolves a path against the cached document for ep, falling
// back to the most recent history snapshot when the cache slot is
// empty or the walk misses. ok=false is the uniform "no data" answer;
// a broken history database degrades to a miss (logged) so a store
// outage never breaks reads of cached data.
func (c *Client) Lookup(ctx context.Context, ep Endpoint, path jsonpath.Path) (any, bool) {
	if doc, have := c.cached(ep); have {
		if v, ok := path.Resolve(doc); ok {
			return v, true
		}
	}

	if c.hist == nil {
		return nil, false
	}

	// A backends path that starts with a positional index selects one
	// backend, which history also records standalone. The stored row is
	// already scoped to that backend, so the leading index is stripped
	// before replaying the walk.
	if ep == EndpointBackends && len(path) > 0 && path[0].IsIndex() {
		if scope, ok := history.BackendScope(path[0].Index()); ok {
			if doc, found := c.recall(ctx, scope); found {
				if v, ok := path[1:].Resolve(doc); ok {
					return v, true
				}
			}
		}
	}

	doc, found := c.recall(ctx, history.Scope(ep))
	if !found {
		return nil, false
	}
	return path.Resolve(doc)
}

func (c *Client) recall(ctx context.Context, scope history.Scope) (any, bool) {
	doc, ok, err := c.hist.MostRecent(ctx, c.name, scope)
	if err != nil {
		log.Printf("[Miner] %s: history fallback for %s failed: %v", c.name, scope, err)
		return nil, false
	}
	return doc, ok
}

// Document returns the full cached document for ep, with history
// fallback. Equivalent to Lookup with an empty path.
func (c *Client) Document(ctx context.Context, ep Endpoint) (any, bool) {
	return c.Lookup(ctx, ep, jsonpath.Path{})
}
