// Package miroapi talks to the MIRÓ backend REST API.
package miroapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"miro-api/internal/workbook"
)

var ErrNotFound = errors.New("not found")

const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	base    *http.Client
	service oauth2.TokenSource
}

type Option func(*Client)

// WithHTTPClient sets the transport used for every call.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.base = h }
}

// WithClientCredentials authenticates calls that carry no user token with the
// OAuth2 client-credentials grant.
func WithClientCredentials(clientID, clientSecret, tokenURL string) Option {
	return func(c *Client) {
		if clientID == "" || tokenURL == "" {
			return
		}
		cfg := clientcredentials.Config{ClientID: clientID, ClientSecret: clientSecret, TokenURL: tokenURL}
		c.service = cfg.TokenSource(context.Background())
	}
}

// WithTokenSource is WithClientCredentials for an existing token source.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.service = ts }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), base: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	return c
}

type bearerKey struct{}

// WithBearer makes calls made with ctx act on behalf of the user owning token.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

func (c *Client) httpClient(ctx context.Context) *http.Client {
	octx := context.WithValue(ctx, oauth2.HTTPClient, c.base)
	if tok, _ := ctx.Value(bearerKey{}).(string); tok != "" {
		return oauth2.NewClient(octx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}))
	}
	if c.service != nil {
		return oauth2.NewClient(octx, c.service)
	}
	return c.base
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch resp.StatusCode {
	case http.StatusBadRequest:
		var ve ValidationError
		if err := json.Unmarshal(raw, &ve); err == nil && len(ve.Details) > 0 {
			return &ve
		}
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	var msg struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	text := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &msg); err == nil {
		if msg.Message != "" {
			text = msg.Message
		} else if msg.Error != "" {
			text = msg.Error
		}
	}
	return &StatusError{Code: resp.StatusCode, Message: text}
}

func (c *Client) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var t Template
	if err := c.do(ctx, http.MethodGet, "/templates/"+url.PathEscape(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) GetValidator(ctx context.Context, name string) (*workbook.Validator, error) {
	var v workbook.Validator
	if err := c.do(ctx, http.MethodGet, "/validators/"+url.PathEscape(name), nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetValidators fetches the named validators concurrently, keeping their order.
func (c *Client) GetValidators(ctx context.Context, names []string) ([]workbook.Validator, error) {
	out := make([]workbook.Validator, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			v, err := c.GetValidator(gctx, name)
			if err != nil {
				return fmt.Errorf("validator %q: %w", name, err)
			}
			out[i] = *v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPublishedTemplate(ctx context.Context, id string) (*PublishedTemplate, error) {
	var p PublishedTemplate
	if err := c.do(ctx, http.MethodGet, "/pTemplates/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetLoadedData returns what the producer already submitted for a published template.
func (c *Client) GetLoadedData(ctx context.Context, pubTemID, email string) (workbook.RowData, error) {
	q := url.Values{"pubTem_id": {pubTemID}, "email": {email}}
	var data workbook.RowData
	if err := c.do(ctx, http.MethodGet, "/pTemplates/producer/loaded", q, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// LoadData submits ingested rows. A 400 comes back as *ValidationError.
func (c *Client) LoadData(ctx context.Context, req LoadRequest) (int, error) {
	if req.Data == nil {
		req.Data = []workbook.Record{}
	}
	var out loadResponse
	if err := c.do(ctx, http.MethodPut, "/pTemplates/producer/load", nil, req, &out); err != nil {
		return 0, err
	}
	return out.RecordsLoaded, nil
}

func (c *Client) SearchTemplates(ctx context.Context, search string, page, limit int) (*SearchResult, error) {
	q := url.Values{"search": {search}, "page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(limit)}}
	var out SearchResult
	if err := c.do(ctx, http.MethodGet, "/templates/pagination", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
