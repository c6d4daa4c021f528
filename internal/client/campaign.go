package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/crmkit/segmint/internal/validation"
)

// Campaign statuses reported by the CRM.
const (
	CampaignPending   = "PENDING"
	CampaignCompleted = "COMPLETED"
)

// Campaign is a message sent to the customers of one segment.
type Campaign struct {
	ID             string    `json:"_id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Content        string    `json:"content" yaml:"content"`
	SegmentID      string    `json:"segment_id" yaml:"segment_id"`
	OrganizationID string    `json:"organizationId,omitempty" yaml:"organizationId,omitempty"`
	Status         string    `json:"status,omitempty" yaml:"status,omitempty"`
	Sent           int       `json:"sent" yaml:"sent"`
	Failed         int       `json:"failed" yaml:"failed"`
	CreatedAt      time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// CampaignInput is the editable part of a campaign. Content may use the
// ${name} placeholder for the customer's name.
type CampaignInput struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	SegmentID string `json:"segment_id"`
}

type campaignOrgInput struct {
	CampaignInput
	OrganizationID string `json:"organizationId"`
}

func validateCampaign(in CampaignInput) error {
	return validation.ValidateCampaign(validation.CampaignParams{
		Name:      in.Name,
		Content:   in.Content,
		SegmentID: in.SegmentID,
	}).Err()
}

// CreateCampaign creates a campaign targeting in.SegmentID.
func (c *Client) CreateCampaign(ctx context.Context, in CampaignInput) (*Campaign, error) {
	if err := c.requireOrg(); err != nil {
		return nil, err
	}
	if err := validateCampaign(in); err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			Campaign Campaign `json:"campaign"`
		} `json:"data"`
	}
	body := campaignOrgInput{CampaignInput: in, OrganizationID: c.OrganizationID}
	if err := c.do(ctx, http.MethodPost, "/api/campaign/createcampaign", body, "Failed to create campaign", &result); err != nil {
		return nil, err
	}
	return &result.Data.Campaign, nil
}

// ListCampaigns returns the campaigns of the active organization.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	if err := c.requireOrg(); err != nil {
		return nil, err
	}

	var result struct {
		Data []Campaign `json:"data"`
	}
	body := map[string]string{"organizationId": c.OrganizationID}
	if err := c.do(ctx, http.MethodPost, "/api/campaign/getcampaigns", body, "Failed to fetch campaigns", &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetCampaign retrieves a single campaign by ID.
func (c *Client) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	if err := c.requireOrg(); err != nil {
		return nil, err
	}
	if err := validation.ValidateSegmentID(id).Err(); err != nil {
		return nil, err
	}

	var result struct {
		Campaign Campaign `json:"campaign"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/campaign/"+url.PathEscape(id), nil, "Failed to fetch campaign", &result); err != nil {
		return nil, err
	}
	return &result.Campaign, nil
}

// UpdateCampaign replaces the editable fields of a campaign.
func (c *Client) UpdateCampaign(ctx context.Context, id string, in CampaignInput) (*Campaign, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	if err := validation.ValidateSegmentID(id).Err(); err != nil {
		return nil, err
	}
	if err := validateCampaign(in); err != nil {
		return nil, err
	}

	var result struct {
		Campaign Campaign `json:"campaign"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/campaigns/"+url.PathEscape(id), in, "Failed to update campaign", &result); err != nil {
		return nil, err
	}
	return &result.Campaign, nil
}

// DeleteCampaign deletes a campaign of the active organization.
func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	if err := c.requireOrg(); err != nil {
		return err
	}
	if err := validation.ValidateSegmentID(id).Err(); err != nil {
		return err
	}

	body := map[string]string{"campaignId": id, "organizationId": c.OrganizationID}
	return c.do(ctx, http.MethodPost, "/api/campaign/deletecampaign", body, "Failed to delete campaign", nil)
}

// SuggestCampaignMessages asks the CRM's message generator for drafts that
// serve objective. It is the campaign counterpart of the segment rule
// generator: one attempt, blank objectives rejected before any request.
func (c *Client) SuggestCampaignMessages(ctx context.Context, objective string) ([]string, error) {
	if err := validation.ValidateObjective(objective).Err(); err != nil {
		return nil, err
	}

	var result struct {
		Messages []string `json:"messages"`
	}
	body := map[string]string{"objective": objective}
	if err := c.do(ctx, http.MethodPost, "/api/ai/campaignmessage", body, "Failed to generate suggestions", &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}
