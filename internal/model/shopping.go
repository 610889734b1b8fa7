package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var ErrInvalidEntry = errors.New("invalid shopping list entry")

// Suggestion is the prediction metadata carried by a system-generated entry.
type Suggestion struct {
	Confidence          float64   `json:"confidence"`
	AverageIntervalDays float64   `json:"average_interval_days"`
	LastScanOutAt       time.Time `json:"last_scan_out_at"`
}

// NewSuggestion validates prediction metadata for a suggested entry.
func NewSuggestion(confidence, averageIntervalDays float64, lastScanOutAt time.Time) (Suggestion, error) {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Suggestion{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidEntry, confidence)
	}
	if math.IsNaN(averageIntervalDays) || averageIntervalDays < 0 {
		return Suggestion{}, fmt.Errorf("%w: average interval %v", ErrInvalidEntry, averageIntervalDays)
	}
	if lastScanOutAt.IsZero() {
		return Suggestion{}, fmt.Errorf("%w: missing last scan-out time", ErrInvalidEntry)
	}
	return Suggestion{
		Confidence:          confidence,
		AverageIntervalDays: averageIntervalDays,
		LastScanOutAt:       lastScanOutAt,
	}, nil
}

// DaysUntilRestock is how many days remain before the average repurchase
// point, measured from now. Negative once the point has passed.
func (s Suggestion) DaysUntilRestock(now time.Time) float64 {
	return s.AverageIntervalDays - now.Sub(s.LastScanOutAt).Hours()/24
}

// ShoppingListEntry is one line of a user's shopping list. A nil Suggestion
// marks a definite (confirmed or manual) entry.
type ShoppingListEntry struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"user_id"`
	ItemName     string      `json:"item_name"`
	ItemIdentity string      `json:"item_identity,omitempty"`
	Category     string      `json:"category,omitempty"`
	Quantity     int         `json:"quantity"`
	Suggestion   *Suggestion `json:"suggestion,omitempty"`
	Purchased    bool        `json:"purchased"`
	PurchasedAt  *time.Time  `json:"purchased_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (e ShoppingListEntry) IsSuggested() bool {
	return e.Suggestion != nil
}

// NewDefiniteEntry builds a confirmed entry. Identity and category may be empty.
func NewDefiniteEntry(userID int64, name, identity, category string, quantity int) (ShoppingListEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ShoppingListEntry{}, fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if quantity <= 0 {
		return ShoppingListEntry{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidEntry)
	}
	return ShoppingListEntry{
		UserID:       userID,
		ItemName:     name,
		ItemIdentity: strings.TrimSpace(identity),
		Category:     strings.TrimSpace(category),
		Quantity:     quantity,
	}, nil
}

// NewSuggestedEntry builds a system-generated entry for one unit of the item.
func NewSuggestedEntry(userID int64, name, identity, category string, s Suggestion) (ShoppingListEntry, error) {
	e, err := NewDefiniteEntry(userID, name, identity, category, 1)
	if err != nil {
		return ShoppingListEntry{}, err
	}
	if e.ItemIdentity == "" {
		return ShoppingListEntry{}, fmt.Errorf("%w: suggestion needs an item identity", ErrInvalidEntry)
	}
	e.Suggestion = &s
	return e, nil
}

// NameKey is the normalized item name used to match list entries.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
