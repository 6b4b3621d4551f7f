package backup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemRepository is an in-memory implementation of Repository for
// development and testing
type InMemRepository struct {
	mu        sync.Mutex
	settings  map[uuid.UUID]Setting
	snapshots []Snapshot
}

// NewInMemRepository creates a new in-memory backup repository
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		settings: make(map[uuid.UUID]Setting),
	}
}

func (r *InMemRepository) ListEnabledSettings(ctx context.Context) ([]Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var enabled []Setting
	for _, setting := range r.settings {
		if setting.AutoBackupEnabled {
			enabled = append(enabled, setting)
		}
	}
	return enabled, nil
}

func (r *InMemRepository) LatestBackupTime(ctx context.Context, restaurantID uuid.UUID) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *time.Time
	for _, snapshot := range r.snapshots {
		if snapshot.RestaurantID != restaurantID {
			continue
		}
		if latest == nil || snapshot.CreatedAt.After(*latest) {
			createdAt := snapshot.CreatedAt
			latest = &createdAt
		}
	}
	return latest, nil
}

func (r *InMemRepository) CreateSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	r.snapshots = append(r.snapshots, snapshot)
	return snapshot, nil
}

func (r *InMemRepository) DeleteOlderThan(ctx context.Context, restaurantID uuid.UUID, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.snapshots[:0]
	deleted := 0
	for _, snapshot := range r.snapshots {
		if snapshot.RestaurantID == restaurantID && snapshot.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, snapshot)
	}
	r.snapshots = kept
	return deleted, nil
}

func (r *InMemRepository) UpsertSetting(ctx context.Context, setting Setting) (Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.settings[setting.RestaurantID]
	if ok {
		setting.ID = existing.ID
		setting.CreatedAt = existing.CreatedAt
	} else {
		if setting.ID == uuid.Nil {
			setting.ID = uuid.New()
		}
		setting.CreatedAt = now
	}
	setting.UpdatedAt = now
	r.settings[setting.RestaurantID] = setting
	return setting, nil
}

// Snapshots returns a copy of the stored snapshots, oldest first.
// Test helper.
func (r *InMemRepository) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// InMemDomainStore is an in-memory DomainStore seeded by tests and the
// development binary
type InMemDomainStore struct {
	mu          sync.Mutex
	inventory   map[uuid.UUID][]InventoryItem
	menuItems   map[uuid.UUID][]MenuItem
	ingredients map[uuid.UUID][]MenuIngredient
	purchases   map[uuid.UUID][]PurchaseRecord
	consumption map[uuid.UUID][]ConsumptionRecord
}

// NewInMemDomainStore creates an empty in-memory domain store
func NewInMemDomainStore() *InMemDomainStore {
	return &InMemDomainStore{
		inventory:   make(map[uuid.UUID][]InventoryItem),
		menuItems:   make(map[uuid.UUID][]MenuItem),
		ingredients: make(map[uuid.UUID][]MenuIngredient),
		purchases:   make(map[uuid.UUID][]PurchaseRecord),
		consumption: make(map[uuid.UUID][]ConsumptionRecord),
	}
}

func (s *InMemDomainStore) ListInventory(ctx context.Context, restaurantID uuid.UUID) ([]InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]InventoryItem(nil), s.inventory[restaurantID]...), nil
}

func (s *InMemDomainStore) ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MenuItem(nil), s.menuItems[restaurantID]...), nil
}

func (s *InMemDomainStore) ListMenuIngredients(ctx context.Context, menuItemIDs []uuid.UUID) ([]MenuIngredient, error) {
	if len(menuItemIDs) == 0 {
		return []MenuIngredient{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []MenuIngredient
	for _, id := range menuItemIDs {
		out = append(out, s.ingredients[id]...)
	}
	return out, nil
}

func (s *InMemDomainStore) ListPurchases(ctx context.Context, restaurantID uuid.UUID) ([]PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PurchaseRecord(nil), s.purchases[restaurantID]...), nil
}

func (s *InMemDomainStore) ListConsumption(ctx context.Context, restaurantID uuid.UUID) ([]ConsumptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ConsumptionRecord(nil), s.consumption[restaurantID]...), nil
}

// AddInventoryItem seeds one stock row
func (s *InMemDomainStore) AddInventoryItem(item InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.inventory[item.RestaurantID] = append(s.inventory[item.RestaurantID], item)
}

// AddMenuItem seeds one menu row
func (s *InMemDomainStore) AddMenuItem(item MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.menuItems[item.RestaurantID] = append(s.menuItems[item.RestaurantID], item)
}

// AddMenuIngredient seeds one ingredient link keyed by its menu item
func (s *InMemDomainStore) AddMenuIngredient(ingredient MenuIngredient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ingredient.ID == uuid.Nil {
		ingredient.ID = uuid.New()
	}
	s.ingredients[ingredient.MenuItemID] = append(s.ingredients[ingredient.MenuItemID], ingredient)
}

// AddPurchase seeds one purchase record
func (s *InMemDomainStore) AddPurchase(record PurchaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.purchases[record.RestaurantID] = append(s.purchases[record.RestaurantID], record)
}

// AddConsumption seeds one consumption record
func (s *InMemDomainStore) AddConsumption(record ConsumptionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.consumption[record.RestaurantID] = append(s.consumption[record.RestaurantID], record)
}

// backfill for tests that need a snapshot with a past timestamp
func (r *InMemRepository) insertSnapshotAt(snapshot Snapshot, createdAt time.Time) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	snapshot.CreatedAt = createdAt
	r.snapshots = append(r.snapshots, snapshot)
	return snapshot
}
