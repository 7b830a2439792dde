// Package client is the debugctl HTTP client for the debug console API.
package client

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
	"time"

	"github.com/telhawk-systems/debugconsole/internal/models"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

type jsonAPIResource struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

type jsonAPIError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// ListOptions filters ListEvents. Zero values are omitted.
type ListOptions struct {
	Severity  string
	Source    string
	EventType string
	Since     time.Time
	Page      int
	Limit     int
}

type EventList struct {
	Events     []*models.DebugEvent
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

func (c *Client) RecordEvent(ctx context.Context, req models.RecordEventRequest) (*models.DebugEvent, error) {
	var doc struct {
		Data jsonAPIResource `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/debug/events", req, http.StatusCreated, &doc); err != nil {
		return nil, err
	}
	return decodeEvent(doc.Data)
}

func (c *Client) GetEvent(ctx context.Context, id string) (*models.DebugEvent, error) {
	var doc struct {
		Data jsonAPIResource `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/debug/events/"+url.PathEscape(id), nil, http.StatusOK, &doc); err != nil {
		return nil, err
	}
	return decodeEvent(doc.Data)
}

func (c *Client) ListEvents(ctx context.Context, opts ListOptions) (*EventList, error) {
	q := url.Values{}
	if opts.Severity != "" {
		q.Set("severity", opts.Severity)
	}
	if opts.Source != "" {
		q.Set("source", opts.Source)
	}
	if opts.EventType != "" {
		q.Set("event_type", opts.EventType)
	}
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/v1/debug/events"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var doc struct {
		Data []jsonAPIResource `json:"data"`
		Meta struct {
			Pagination struct {
				Page       int `json:"page"`
				Limit      int `json:"limit"`
				Total      int `json:"total"`
				TotalPages int `json:"total_pages"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &doc); err != nil {
		return nil, err
	}

	list := &EventList{
		Events:     make([]*models.DebugEvent, 0, len(doc.Data)),
		Page:       doc.Meta.Pagination.Page,
		Limit:      doc.Meta.Pagination.Limit,
		Total:      doc.Meta.Pagination.Total,
		TotalPages: doc.Meta.Pagination.TotalPages,
	}
	for _, res := range doc.Data {
		event, err := decodeEvent(res)
		if err != nil {
			return nil, err
		}
		list.Events = append(list.Events, event)
	}
	return list, nil
}

// PurgeEvents deletes events before the cutoff, given as an RFC 3339
// timestamp or a duration such as "720h".
func (c *Client) PurgeEvents(ctx context.Context, before string) (*models.PurgeResponse, error) {
	var resp models.PurgeResponse
	path := "/api/v1/debug/events?before=" + url.QueryEscape(before)
	if err := c.do(ctx, http.MethodDelete, path, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var doc struct {
		Errors []jsonAPIError `json:"errors"`
	}
	if err := json.Unmarshal(bodyBytes, &doc); err == nil && len(doc.Errors) > 0 {
		apiErr.Code = doc.Errors[0].Code
		apiErr.Detail = doc.Errors[0].Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(bodyBytes))
	}
	return apiErr
}

func decodeEvent(res jsonAPIResource) (*models.DebugEvent, error) {
	var event models.DebugEvent
	if err := json.Unmarshal(res.Attributes, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", res.ID, err)
	}
	if event.ID == "" {
		event.ID = res.ID
	}
	return &event, nil
}
