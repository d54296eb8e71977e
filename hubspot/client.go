// ABOUTME: HubSpot CRM REST client with bearer auth and cursor pagination
// ABOUTME: Wraps JSON requests, API error decoding, and paging.next.after traversal
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// DefaultPageSize is the page size requested from list endpoints.
const DefaultPageSize = 100

var ErrNotFound = errors.New("hubspot: record not found")

// APIError is returned for any non-2xx HubSpot response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to the HubSpot CRM v3/v4 APIs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	pageSize   int
}

// NewClient creates a client authenticated with a private app access token.
func NewClient(ctx context.Context, baseURL, token string, log zerolog.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log.With().Str("component", "hubspot").Logger(),
		pageSize:   DefaultPageSize,
	}, nil
}

// record is the generic CRM object envelope.
type record struct {
	ID         string             `json:"id"`
	Properties map[string]*string `json:"properties"`
}

func (r *record) prop(name string) string {
	if v, ok := r.Properties[name]; ok && v != nil {
		return *v
	}
	return ""
}

type paging struct {
	Next *struct {
		After string `json:"after"`
	} `json:"next"`
}

func (p *paging) after() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return p.Next.After
}

type recordPage struct {
	Results []record `json:"results"`
	Paging  *paging  `json:"paging"`
}

type propertiesBody struct {
	Properties map[string]string `json:"properties"`
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// listAll walks a v3 object list endpoint until paging.next is absent.
func (c *Client) listAll(ctx context.Context, objectType string, properties []string) ([]record, error) {
	var (
		all   []record
		after string
	)

	for {
		query := url.Values{}
		query.Set("limit", fmt.Sprint(c.pageSize))
		if len(properties) > 0 {
			query.Set("properties", strings.Join(properties, ","))
		}
		if after != "" {
			query.Set("after", after)
		}

		c.log.Debug().Str("object_type", objectType).Str("after", after).Msg("listing page")

		var page recordPage
		if err := c.do(ctx, http.MethodGet, "/crm/v3/objects/"+objectType, query, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", objectType, err)
		}
		all = append(all, page.Results...)

		after = page.Paging.after()
		if after == "" {
			break
		}
	}

	return all, nil
}

func (c *Client) getRecord(ctx context.Context, objectType, id string, properties []string) (*record, error) {
	query := url.Values{}
	if len(properties) > 0 {
		query.Set("properties", strings.Join(properties, ","))
	}

	var rec record
	path := fmt.Sprintf("/crm/v3/objects/%s/%s", objectType, url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) createRecord(ctx context.Context, objectType string, properties map[string]string) (*record, error) {
	var rec record
	path := "/crm/v3/objects/" + objectType
	if err := c.do(ctx, http.MethodPost, path, nil, propertiesBody{Properties: properties}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) updateRecord(ctx context.Context, objectType, id string, properties map[string]string) (*record, error) {
	var rec record
	path := fmt.Sprintf("/crm/v3/objects/%s/%s", objectType, url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, path, nil, propertiesBody{Properties: properties}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hubspot %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("hubspot request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
			apiErr.Message = eb.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode hubspot response: %w", err)
	}
	return nil
}
