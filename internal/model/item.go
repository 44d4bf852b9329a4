package model

import (
	"net/url"
	"strings"
	"time"
)

// Kind tells whether an item was reported lost or found.
type Kind string

// Item kinds.
const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// ParseKind converts a path or form value into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLost:
		return KindLost, true
	case KindFound:
		return KindFound, true
	}
	return "", false
}

// Opposite returns the kind an item of this kind is matched against.
func (k Kind) Opposite() Kind {
	if k == KindLost {
		return KindFound
	}
	return KindLost
}

// Title is the human-readable label used in pages and messages.
func (k Kind) Title() string {
	if k == KindLost {
		return "Lost"
	}
	return "Found"
}

// Item is a reported lost or found item.
type Item struct {
	ID            int64     `json:"id"`
	Kind          Kind      `json:"kind"`
	Name          string    `json:"item_name"`
	Category      string    `json:"category"`
	Description   string    `json:"description,omitempty"`
	EventDate     string    `json:"event_date"`
	Location      string    `json:"location"`
	ContactName   string    `json:"contact_name"`
	ContactEmail  string    `json:"contact_email,omitempty"`
	ContactPhone  string    `json:"contact_phone,omitempty"`
	ImageFilename string    `json:"image_filename,omitempty"`
	Status        string    `json:"status"`
	UserID        *int64    `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Item statuses.
const (
	ItemStatusUnclaimed = "unclaimed"
	ItemStatusClaimed   = "claimed"
)

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s string) bool {
	return s == ItemStatusUnclaimed || s == ItemStatusClaimed
}

// ItemInput holds the user-editable fields of an item.
type ItemInput struct {
	Name         string `json:"item_name"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	EventDate    string `json:"event_date"`
	Location     string `json:"location"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// ItemInputFromForm reads the report form fields, trimming whitespace.
func ItemInputFromForm(form url.Values) ItemInput {
	get := func(key string) string { return strings.TrimSpace(form.Get(key)) }
	return ItemInput{
		Name:         get("item_name"),
		Category:     get("category"),
		Description:  get("description"),
		EventDate:    get("event_date"),
		Location:     get("location"),
		ContactName:  get("contact_name"),
		ContactEmail: get("contact_email"),
		ContactPhone: get("contact_phone"),
	}
}

// Validate checks the fields a report cannot be filed without. The event
// date is stored as entered; the matcher copes with malformed values.
func (in ItemInput) Validate() []string {
	var errs []string
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, "Item name is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		errs = append(errs, "Category is required")
	}
	if strings.TrimSpace(in.EventDate) == "" {
		errs = append(errs, "Date is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		errs = append(errs, "Location is required")
	}
	if strings.TrimSpace(in.ContactName) == "" {
		errs = append(errs, "Contact name is required")
	}
	return errs
}

// Categories offered by the report forms.
var Categories = []string{
	"Electronics",
	"Wallet",
	"Keys",
	"Bag",
	"Clothing",
	"Jewelry",
	"Documents",
	"Books",
	"Other",
}

// ModifiableBy reports whether a user may change or delete the item:
// admins may change anything, users only what they reported.
func (i *Item) ModifiableBy(userID int64, role string) bool {
	if role == RoleAdmin {
		return true
	}
	return i.UserID != nil && *i.UserID == userID
}
