package backup

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for backup policy and snapshot storage
type Repository interface {
	// ListEnabledSettings returns every policy with auto backup turned on
	ListEnabledSettings(ctx context.Context) ([]Setting, error)

	// LatestBackupTime returns when the restaurant's most recent snapshot
	// of any type was taken, or nil when none exists
	LatestBackupTime(ctx context.Context, restaurantID uuid.UUID) (*time.Time, error)

	// CreateSnapshot stores one backup
	CreateSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error)

	// DeleteOlderThan removes the restaurant's snapshots created strictly
	// before the cutoff
	DeleteOlderThan(ctx context.Context, restaurantID uuid.UUID, cutoff time.Time) (int, error)

	// UpsertSetting stores a restaurant's backup policy
	UpsertSetting(ctx context.Context, setting Setting) (Setting, error)
}

// DomainStore reads the restaurant data that snapshots capture. The backup
// service only reads through it; ownership of these tables stays with the
// inventory and menu modules.
type DomainStore interface {
	ListInventory(ctx context.Context, restaurantID uuid.UUID) ([]InventoryItem, error)
	ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error)
	// ListMenuIngredients fetches ingredient links for a batch of menu
	// item IDs. An empty batch returns an empty slice without a query.
	ListMenuIngredients(ctx context.Context, menuItemIDs []uuid.UUID) ([]MenuIngredient, error)
	ListPurchases(ctx context.Context, restaurantID uuid.UUID) ([]PurchaseRecord, error)
	ListConsumption(ctx context.Context, restaurantID uuid.UUID) ([]ConsumptionRecord, error)
}
