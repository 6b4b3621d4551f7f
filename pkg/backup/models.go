package backup

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BackupType identifies one snapshot-able slice of restaurant data
type BackupType string

const (
	BackupTypeInventory    BackupType = "inventory"
	BackupTypeMenu         BackupType = "menu"
	BackupTypeTransactions BackupType = "transactions"
	BackupTypeSales        BackupType = "sales"
)

// ValidBackupType reports whether t is one of the supported types
func ValidBackupType(t BackupType) bool {
	switch t {
	case BackupTypeInventory, BackupTypeMenu, BackupTypeTransactions, BackupTypeSales:
		return true
	}
	return false
}

// Setting is one restaurant's backup policy
type Setting struct {
	ID                uuid.UUID    `json:"id"`
	RestaurantID      uuid.UUID    `json:"restaurant_id"`
	AutoBackupEnabled bool         `json:"auto_backup_enabled"`
	FrequencyHours    int          `json:"frequency_hours"`
	Types             []BackupType `json:"types"`
	RetentionDays     int          `json:"retention_days"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Frequency returns the policy's backup interval
func (s Setting) Frequency() time.Duration {
	return time.Duration(s.FrequencyHours) * time.Hour
}

// Snapshot is one stored backup. The payload is opaque JSON; restore
// tooling interprets it by backup type.
type Snapshot struct {
	ID           uuid.UUID       `json:"id"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	BackupType   BackupType      `json:"backup_type"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Result statuses
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Result reports the outcome of one backup attempt within a pass
type Result struct {
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	BackupType   BackupType `json:"backup_type,omitempty"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	Created      int        `json:"created"`
}

// InventoryItem is one stock row included in an inventory snapshot
type InventoryItem struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Quantity     float64   `json:"quantity"`
	CostPerUnit  float64   `json:"cost_per_unit"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MenuItem is one menu row included in a menu snapshot
type MenuItem struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	IsAvailable  bool      `json:"is_available"`
}

// MenuIngredient links a menu item to an inventory item with a quantity
type MenuIngredient struct {
	ID              uuid.UUID `json:"id"`
	MenuItemID      uuid.UUID `json:"menu_item_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
}

// PurchaseRecord is one stock purchase included in a transactions snapshot
type PurchaseRecord struct {
	ID              uuid.UUID `json:"id"`
	RestaurantID    uuid.UUID `json:"restaurant_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Quantity        float64   `json:"quantity"`
	TotalCost       float64   `json:"total_cost"`
	PurchasedAt     time.Time `json:"purchased_at"`
}

// ConsumptionRecord is one stock deduction included in a transactions snapshot
type ConsumptionRecord struct {
	ID              uuid.UUID `json:"id"`
	RestaurantID    uuid.UUID `json:"restaurant_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Quantity        float64   `json:"quantity"`
	Reason          string    `json:"reason"`
	ConsumedAt      time.Time `json:"consumed_at"`
}
