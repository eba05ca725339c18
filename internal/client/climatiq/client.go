package climatiq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("climatiq error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if host == "" {
		host = "https://api.climatiq.io/data/v1"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cache-Control", "no-store")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// EstimateBatch submits the whole payload as one call. The response results
// array is index-aligned with the request array; the call either succeeds as a
// unit or fails as a unit.
func (c *Client) EstimateBatch(ctx context.Context, requests []EstimateRequest) (*EstimateBatchResponse, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("at least one estimate request is required")
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/estimate/batch", nil, requests)
	if err != nil {
		return nil, err
	}
	var out EstimateBatchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode estimate batch response: %w", err)
	}
	return &out, nil
}

func (c *Client) UnitTypes(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/unit-types", nil, nil)
}

func (c *Client) DataVersions(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/data-versions", nil, nil)
}

// Search fetches one page of the emission-factor catalog. Callers walk pages
// via SearchPage.LastPage.
func (c *Client) Search(ctx context.Context, params url.Values, page, resultsPerPage int) (*SearchPage, error) {
	query := url.Values{}
	for key, vals := range params {
		for _, v := range vals {
			query.Add(key, v)
		}
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if resultsPerPage > 0 {
		query.Set("results_per_page", strconv.Itoa(resultsPerPage))
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/search", query, nil)
	if err != nil {
		return nil, err
	}
	var out SearchPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &out, nil
}
