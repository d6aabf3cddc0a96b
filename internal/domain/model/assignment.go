package model

import (
	"time"

	"mat-kinh-affiliate/internal/domain"
)

// Channel is the referral method a voucher is issued through.
type Channel string

const (
	ChannelDirect Channel = "direct" // partner enters the customer's phone
	ChannelLink   Channel = "link"   // customer self-claims via a shared URL
)

func (c Channel) Valid() bool { return c == ChannelDirect || c == ChannelLink }

type AssignmentType string

const (
	AssignmentDirect AssignmentType = "direct"
	AssignmentLink   AssignmentType = "link"
	AssignmentBoth   AssignmentType = "both"
)

func (t AssignmentType) Valid() bool {
	return t == AssignmentDirect || t == AssignmentLink || t == AssignmentBoth
}

// Allows reports whether a grant of this type covers issuance via channel.
// "both" is a single grant covering either channel; it is a distinct record
// from a direct+link pair, not a merge of them.
func (t AssignmentType) Allows(ch Channel) bool {
	switch t {
	case AssignmentBoth:
		return true
	case AssignmentDirect:
		return ch == ChannelDirect
	case AssignmentLink:
		return ch == ChannelLink
	}
	return false
}

// Assignment grants one F0 partner the right to mint vouchers for one
// campaign via one channel type. The (F0Code, CampaignID, Type) triple is
// unique; revoking a grant does not affect vouchers already issued under it.
type Assignment struct {
	ID         string // UUID
	F0Code     string
	CampaignID string
	Type       AssignmentType
	AssignedAt time.Time
}

func NewAssignment(id, f0Code, campaignID string, typ AssignmentType) (*Assignment, error) {
	if id == "" || f0Code == "" || campaignID == "" || !typ.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return &Assignment{
		ID:         id,
		F0Code:     f0Code,
		CampaignID: campaignID,
		Type:       typ,
		AssignedAt: time.Now(),
	}, nil
}
