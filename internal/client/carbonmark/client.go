package carbonmark

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
	return fmt.Sprintf("carbonmark error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if host == "" {
		host = "https://v17.api.carbonmark.com"
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
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
	// The API reports some failures as 200 with an error envelope.
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return nil, &APIError{Status: resp.StatusCode, Body: envelope.Error}
	}
	return body, nil
}

func (c *Client) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	if req.AssetPriceSourceID == "" {
		return nil, fmt.Errorf("asset_price_source_id is required")
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/quotes", nil, req)
	if err != nil {
		return nil, err
	}
	var out Quote
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.QuoteUUID == "" {
		return nil, fmt.Errorf("quote_uuid is required")
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/orders", nil, req)
	if err != nil {
		return nil, err
	}
	var out Order
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &out, nil
}

// OrdersByQuote looks up orders by quote uuid. The listing endpoint has been
// observed returning both a bare array and a {data: [...]} envelope; both
// shapes are accepted.
func (c *Client) OrdersByQuote(ctx context.Context, quoteUUID string) ([]Order, error) {
	if quoteUUID == "" {
		return nil, fmt.Errorf("quote_uuid is required")
	}
	query := url.Values{}
	query.Set("quote_uuid", quoteUUID)
	body, err := c.doRequest(ctx, http.MethodGet, "/orders", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrderList(body)
}

func decodeOrderList(body []byte) ([]Order, error) {
	var bare []Order
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	var envelope struct {
		Data []Order `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	var single Order
	if err := json.Unmarshal(body, &single); err == nil && single.Status != "" {
		return []Order{single}, nil
	}
	return nil, fmt.Errorf("unrecognized orders response shape")
}

// CarbonProjects proxies the marketplace project browse. minSupply=1 is always
// forced so retired-out listings are excluded.
func (c *Client) CarbonProjects(ctx context.Context, params url.Values) (json.RawMessage, error) {
	query := url.Values{}
	for key, vals := range params {
		for _, v := range vals {
			query.Add(key, v)
		}
	}
	query.Set("minSupply", "1")
	return c.doRequest(ctx, http.MethodGet, "/carbonProjects", query, nil)
}

func (c *Client) CarbonProject(ctx context.Context, key string) (json.RawMessage, error) {
	if key == "" {
		return nil, fmt.Errorf("project key is required")
	}
	return c.doRequest(ctx, http.MethodGet, "/carbonProjects/"+url.PathEscape(key), nil, nil)
}

func (c *Client) Prices(ctx context.Context, projectID string, expiresAfter int64) (json.RawMessage, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	query := url.Values{}
	query.Set("projectIds", projectID)
	query.Set("minSupply", "1")
	if expiresAfter > 0 {
		query.Set("expiresAfter", strconv.FormatInt(expiresAfter, 10))
	}
	return c.doRequest(ctx, http.MethodGet, "/prices", query, nil)
}
