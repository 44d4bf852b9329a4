package model

import (
	"net/url"
	"strings"
	"time"
)

// Claim is a request by someone to collect a reported item.
type Claim struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	Name        string    `json:"claimant_name"`
	Email       string    `json:"claimant_email,omitempty"`
	Phone       string    `json:"claimant_phone,omitempty"`
	Description string    `json:"claim_description,omitempty"`
	Status      string    `json:"status"`
	UserID      *int64    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName        string `json:"item_name,omitempty"`
	ItemKind        Kind   `json:"item_kind,omitempty"`
	OriginalContact string `json:"original_contact,omitempty"`
}

// Claim statuses.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)

// ValidClaimStatus reports whether s is a known claim status.
func ValidClaimStatus(s string) bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}

// ClaimInput holds the fields a claimant submits.
type ClaimInput struct {
	Name        string `json:"claimant_name"`
	Email       string `json:"claimant_email"`
	Phone       string `json:"claimant_phone"`
	Description string `json:"claim_description"`
}

// Validate returns the problems with a claim submission.
func (in ClaimInput) Validate() []string {
	if strings.TrimSpace(in.Name) == "" {
		return []string{"Your name is required"}
	}
	return nil
}

// ClaimInputFromForm reads the claim form fields, trimming whitespace.
func ClaimInputFromForm(form url.Values) ClaimInput {
	return ClaimInput{
		Name:        strings.TrimSpace(form.Get("claimant_name")),
		Email:       strings.TrimSpace(form.Get("claimant_email")),
		Phone:       strings.TrimSpace(form.Get("claimant_phone")),
		Description: strings.TrimSpace(form.Get("claim_description")),
	}
}
