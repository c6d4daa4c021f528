// Package client is an HTTP client for the CRM segment API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
	"github.com/crmkit/segmint/internal/validation"
)

// Segment is a saved customer segment.
type Segment struct {
	ID             string      `json:"_id" yaml:"id"`
	Title          string      `json:"title" yaml:"title"`
	Description    string      `json:"description,omitempty" yaml:"description,omitempty"`
	Rules          rules.Group `json:"rules" yaml:"rules"`
	OrganizationID string      `json:"organizationId,omitempty" yaml:"organizationId,omitempty"`
	Customers      int         `json:"customers,omitempty" yaml:"customers,omitempty"`
	CreatedAt      time.Time   `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt      time.Time   `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// SegmentInput is the editable part of a segment.
type SegmentInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Rules       rules.Group `json:"rules"`
}

// Client is an HTTP client for the segment API. Every call is a single
// attempt; failures are returned to the caller.
type Client struct {
	BaseURL        string
	Token          string
	OrganizationID string
	HTTPClient     *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token, organizationID string) *Client {
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		Token:          token,
		OrganizationID: organizationID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateSegment saves a new segment in the active organization.
func (c *Client) CreateSegment(ctx context.Context, in SegmentInput) (*Segment, error) {
	if err := c.requireOrg(); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var result struct {
		Data Segment `json:"data"`
	}
	err := c.do(ctx, http.MethodPost, "/api/segment/createsegment", c.withOrg(in), "Failed to create segment", &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// PreviewSegment returns how many customers in the active organization match
// in.Rules. Nothing is persisted.
func (c *Client) PreviewSegment(ctx context.Context, in SegmentInput) (int, error) {
	if err := c.requireOrg(); err != nil {
		return 0, err
	}
	if err := validation.ValidateRuleShape(in.Rules).Err(); err != nil {
		return 0, err
	}

	var result struct {
		Data struct {
			Customers int `json:"customers"`
		} `json:"data"`
	}
	err := c.do(ctx, http.MethodPost, "/api/segment/createsegment/preview", c.withOrg(in), "Failed to preview segment", &result)
	if err != nil {
		return 0, err
	}
	return result.Data.Customers, nil
}

// ListSegments returns the segments of the active organization.
func (c *Client) ListSegments(ctx context.Context) ([]Segment, error) {
	if err := c.requireOrg(); err != nil {
		return nil, err
	}

	var result struct {
		Data []Segment `json:"data"`
	}
	body := map[string]string{"organizationId": c.OrganizationID}
	if err := c.do(ctx, http.MethodPost, "/api/segment/getsegments", body, "Failed to fetch segments", &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetSegment retrieves a single segment by ID.
func (c *Client) GetSegment(ctx context.Context, id string) (*Segment, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	if err := validation.ValidateSegmentID(id).Err(); err != nil {
		return nil, err
	}

	var result struct {
		Segment Segment `json:"segment"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/segments/"+url.PathEscape(id), nil, "Failed to fetch segment", &result); err != nil {
		return nil, err
	}
	return &result.Segment, nil
}

// UpdateSegment replaces the editable fields of a segment.
func (c *Client) UpdateSegment(ctx context.Context, id string, in SegmentInput) (*Segment, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	if err := validation.ValidateSegmentID(id).Err(); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var result struct {
		Segment Segment `json:"segment"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/segments/"+url.PathEscape(id), in, "Failed to update segment", &result); err != nil {
		return nil, err
	}
	return &result.Segment, nil
}

// DeleteSegment deletes a segment of the active organization.
func (c *Client) DeleteSegment(ctx context.Context, id string) error {
	if err := c.requireOrg(); err != nil {
		return err
	}
	if err := validation.ValidateSegmentID(id).Err(); err != nil {
		return err
	}

	body := map[string]string{"segmentId": id, "organizationId": c.OrganizationID}
	return c.do(ctx, http.MethodPost, "/api/segment/deletesegment", body, "Failed to delete segment", nil)
}

func validateInput(in SegmentInput) error {
	return validation.ValidateSegment(validation.SegmentParams{
		Title:       in.Title,
		Description: in.Description,
		Rules:       &in.Rules,
	}).Err()
}

func (c *Client) requireToken() error {
	if strings.TrimSpace(c.Token) == "" {
		return errs.Invalid("token", "Not authenticated")
	}
	return nil
}

func (c *Client) requireOrg() error {
	if strings.TrimSpace(c.Token) == "" || strings.TrimSpace(c.OrganizationID) == "" {
		return errs.Invalid("organization", "No active organization")
	}
	return nil
}

type orgInput struct {
	SegmentInput
	OrganizationID string `json:"organizationId"`
}

func (c *Client) withOrg(in SegmentInput) orgInput {
	return orgInput{SegmentInput: in, OrganizationID: c.OrganizationID}
}

// do sends one request and decodes a 2xx body into out. Non-2xx responses
// become a ServiceError carrying the body's message, or fallback.
func (c *Client) do(ctx context.Context, method, path string, body any, fallback string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &errs.ServiceError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errs.ServiceError{Op: method + " " + path, Status: resp.StatusCode, Message: errorMessage(data, fallback)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &errs.ServiceError{Op: method + " " + path, Status: resp.StatusCode, Message: "failed to decode response", Err: err}
	}
	return nil
}

func errorMessage(data []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return fallback
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != "" {
		return body.Error
	}
	return fallback
}
