package model

import "time"

type ScanAction string

const (
	ScanIn  ScanAction = "scan_in"
	ScanOut ScanAction = "scan_out"
)

func (a ScanAction) Valid() bool {
	return a == ScanIn || a == ScanOut
}

// ScanEvent is one immutable inventory transition. Events are appended and
// never updated or deleted.
type ScanEvent struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	ItemIdentity string     `json:"item_identity"`
	ItemName     string     `json:"item_name"`
	Category     string     `json:"category,omitempty"`
	Location     string     `json:"location,omitempty"`
	Action       ScanAction `json:"action"`
	Quantity     int        `json:"quantity"`
	CreatedAt    time.Time  `json:"created_at"`
}

// InventoryItem is the current holding of one scanned-in product instance.
// It counts towards inventory while ScanOutAt is nil.
type InventoryItem struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	Identity          string     `json:"identity"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Location          string     `json:"location"`
	Quantity          int        `json:"quantity"`
	Unit              string     `json:"unit"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	ScanInAt          time.Time  `json:"scan_in_at"`
	ScanOutAt         *time.Time `json:"scan_out_at"`
}

func (i InventoryItem) Active() bool {
	return i.ScanOutAt == nil
}

type Location struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
