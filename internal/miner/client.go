// Package miner talks to one XMRig instance over its HTTP API, caches
// the latest summary/backends/config responses and records each
// successful fetch into the snapshot history.
package miner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/rigmon/rigmon/internal/history"
)

const defaultHTTPTimeout = 10 * time.Second

// Endpoint is one of the three JSON resources the miner exposes.
type Endpoint string

const (
	EndpointSummary  Endpoint = "summary"
	EndpointBackends Endpoint = "backends"
	EndpointConfig   Endpoint = "config"
)

// Endpoints lists all pollable endpoints in refresh order.
func Endpoints() []Endpoint {
	return []Endpoint{EndpointSummary, EndpointBackends, EndpointConfig}
}

// ParseEndpoint validates a user-supplied endpoint name.
func ParseEndpoint(name string) (Endpoint, error) {
	switch Endpoint(name) {
	case EndpointSummary, EndpointBackends, EndpointConfig:
		return Endpoint(name), nil
	}
	return "", fmt.Errorf("unknown endpoint %q (want summary, backends or config)", name)
}

// Action is a control command for the mining process.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
	// ActionStart is emulated by re-posting the last known config;
	// XMRig has no reliable native start method.
	ActionStart Action = "start"
)

// ParseAction validates a user-supplied action name.
func ParseAction(name string) (Action, error) {
	switch Action(name) {
	case ActionPause, ActionResume, ActionStop, ActionStart:
		return Action(name), nil
	}
	return "", fmt.Errorf("unknown action %q (want pause, resume, stop or start)", name)
}

// Options describes how to reach one miner instance.
type Options struct {
	Name  string
	Host  string
	Port  int
	Token string // bearer token, empty for unrestricted miners
	TLS   bool

	// HTTPClient overrides the default transport, primarily for tests.
	HTTPClient *http.Client
}

// Client owns the fetch/cache/persist lifecycle and control actions
// for one miner. Methods block on the network round-trip; there is no
// internal polling loop.
type Client struct {
	name    string
	baseURL string
	token   string
	http    *http.Client
	hist    *history.Store // nil when persistence is disabled

	mu    sync.Mutex
	cache map[Endpoint]any
}

// New builds a client for the miner described by opts. hist may be nil
// to disable snapshot persistence. No request is made until the first
// Refresh.
func New(opts Options, hist *history.Store) *Client {
	scheme := "http"
	if opts.TLS {
		scheme = "https"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		name:    opts.Name,
		baseURL: fmt.Sprintf("%s://%s:%d", scheme, opts.Host, opts.Port),
		token:   opts.Token,
		http:    httpClient,
		hist:    hist,
		cache:   make(map[Endpoint]any),
	}
}

// Name returns the unique miner name.
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the base HTTP URL of the miner API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpointURL(ep Endpoint) string {
	return c.baseURL + "/2/" + string(ep)
}

func (c *Client) attachToken(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// Refresh fetches one endpoint and overwrites its cache slot. On
// success the document is also recorded in the snapshot history; a
// history write failure surfaces because it means silent data loss.
// A 2xx body that fails to decode leaves the cache untouched.
func (c *Client) Refresh(ctx context.Context, ep Endpoint) error {
	url := c.endpointURL(ep)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.attachToken(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return ConnError{Miner: c.name, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return AuthError{Miner: c.name, Endpoint: string(ep)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ConnError{Miner: c.name, URL: url, Err: errors.New(resp.Status)}
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		parseErr := ParseError{Miner: c.name, Endpoint: string(ep), Err: err}
		log.Printf("[Miner] %s: %v (harmless within ~15 minutes of a miner restart)", c.name, parseErr)
		return parseErr
	}

	c.mu.Lock()
	c.cache[ep] = doc
	c.mu.Unlock()

	if c.hist != nil {
		if err := c.hist.Record(ctx, c.name, history.Scope(ep), doc); err != nil {
			return err
		}
	}
	return nil
}

// RefreshAll fetches every endpoint, continuing past failures, and
// returns the joined errors. A nil result means all three succeeded.
func (c *Client) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, ep := range Endpoints() {
		if err := c.Refresh(ctx, ep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyConfig posts a full configuration document to the miner, then
// refreshes the config cache slot so it reflects what the miner
// actually accepted.
func (c *Client) ApplyConfig(ctx context.Context, cfg map[string]any) error {
	if err := c.postJSON(ctx, c.endpointURL(EndpointConfig), cfg); err != nil {
		return err
	}
	return c.Refresh(ctx, EndpointConfig)
}

// Control issues a control command. pause/resume/stop go over the
// JSON-RPC endpoint; start re-posts the last known config.
func (c *Client) Control(ctx context.Context, action Action) error {
	if action == ActionStart {
		return c.start(ctx)
	}

	payload := struct {
		Method  string `json:"method"`
		JSONRPC string `json:"jsonrpc"`
		ID      int    `json:"id"`
	}{Method: string(action), JSONRPC: "2.0", ID: 1}

	if err := c.postJSON(ctx, c.baseURL+"/json_rpc", payload); err != nil {
		return err
	}
	log.Printf("[Miner] %s: %s issued", c.name, action)
	return nil
}

func (c *Client) start(ctx context.Context) error {
	if err := c.Refresh(ctx, EndpointConfig); err != nil {
		return fmt.Errorf("start %s: refresh config: %w", c.name, err)
	}

	c.mu.Lock()
	cached := c.cache[EndpointConfig]
	c.mu.Unlock()

	cfg, ok := cached.(map[string]any)
	if !ok {
		return fmt.Errorf("start %s: no usable cached config", c.name)
	}
	return c.ApplyConfig(ctx, cfg)
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("miner %s: marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.attachToken(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return ConnError{Miner: c.name, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return AuthError{Miner: c.name, Endpoint: url}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ConnError{Miner: c.name, URL: url, Err: errors.New(resp.Status)}
	}
	return nil
}

// ClearCache drops every in-memory cache slot. History snapshots are
// unaffected; the next Lookup falls back to them.
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[Endpoint]any)
	c.mu.Unlock()
}

func (c *Client) cached(ep Endpoint) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.cache[ep]
	return doc, ok
}
