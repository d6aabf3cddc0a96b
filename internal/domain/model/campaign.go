package model

import (
	"strings"
	"time"

	"mat-kinh-affiliate/internal/domain"
)

type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusInactive CampaignStatus = "inactive"
)

// Campaign is a voucher offer with a fixed value and validity period.
// Code is immutable once created; deactivation is a soft delete and does not
// touch vouchers already issued under the campaign.
type Campaign struct {
	ID           string // UUID
	Code         string // unique, uppercase
	Name         string
	ValueVND     int64 // voucher face value in VND
	ValidityDays int
	ExternalID   string // POS campaign id; empty when the campaign is local-only
	Status       CampaignStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Campaign) IsActive() bool { return c != nil && c.Status == CampaignStatusActive }

// HasExternalBinding reports whether vouchers for this campaign are minted
// through the POS API rather than generated locally.
func (c *Campaign) HasExternalBinding() bool { return c.ExternalID != "" }

// NewCampaign validates and constructs an active campaign.
func NewCampaign(id, code, name string, valueVND int64, validityDays int) (*Campaign, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if id == "" || code == "" || valueVND <= 0 || validityDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Campaign{
		ID:           id,
		Code:         code,
		Name:         name,
		ValueVND:     valueVND,
		ValidityDays: validityDays,
		Status:       CampaignStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
