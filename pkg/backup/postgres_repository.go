package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL backup repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

func (r *PostgresRepository) ListEnabledSettings(ctx context.Context) ([]Setting, error) {
	query := `
		SELECT id, restaurant_id, auto_backup_enabled, frequency_hours,
			backup_types, retention_days, created_at, updated_at
		FROM backup_settings
		WHERE auto_backup_enabled = true
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var setting Setting
		var types []string
		if err := rows.Scan(
			&setting.ID,
			&setting.RestaurantID,
			&setting.AutoBackupEnabled,
			&setting.FrequencyHours,
			&types,
			&setting.RetentionDays,
			&setting.CreatedAt,
			&setting.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan backup setting: %w", err)
		}
		for _, t := range types {
			setting.Types = append(setting.Types, BackupType(t))
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backup settings: %w", err)
	}

	return settings, nil
}

func (r *PostgresRepository) LatestBackupTime(ctx context.Context, restaurantID uuid.UUID) (*time.Time, error) {
	query := `
		SELECT created_at FROM data_backups
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var latest time.Time
	err := r.pool.QueryRow(ctx, query, restaurantID).Scan(&latest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest backup: %w", err)
	}
	return &latest, nil
}

func (r *PostgresRepository) CreateSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	query := `
		INSERT INTO data_backups (id, restaurant_id, backup_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		snapshot.ID,
		snapshot.RestaurantID,
		snapshot.BackupType,
		snapshot.Payload,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, restaurantID uuid.UUID, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM data_backups
		WHERE restaurant_id = $1 AND created_at < $2
	`

	tag, err := r.pool.Exec(ctx, query, restaurantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRepository) UpsertSetting(ctx context.Context, setting Setting) (Setting, error) {
	query := `
		INSERT INTO backup_settings (
			id, restaurant_id, auto_backup_enabled, frequency_hours,
			backup_types, retention_days
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (restaurant_id) DO UPDATE SET
			auto_backup_enabled = EXCLUDED.auto_backup_enabled,
			frequency_hours = EXCLUDED.frequency_hours,
			backup_types = EXCLUDED.backup_types,
			retention_days = EXCLUDED.retention_days,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}
	types := make([]string, 0, len(setting.Types))
	for _, t := range setting.Types {
		types = append(types, string(t))
	}

	err := r.pool.QueryRow(ctx, query,
		setting.ID,
		setting.RestaurantID,
		setting.AutoBackupEnabled,
		setting.FrequencyHours,
		types,
		setting.RetentionDays,
	).Scan(&setting.ID, &setting.CreatedAt, &setting.UpdatedAt)
	if err != nil {
		return Setting{}, fmt.Errorf("failed to upsert backup setting: %w", err)
	}
	return setting, nil
}

// PostgresDomainStore implements DomainStore against the restaurant tables
type PostgresDomainStore struct {
	pool *pgxpool.Pool
}

// NewPostgresDomainStore creates a new PostgreSQL domain store
func NewPostgresDomainStore(pool *pgxpool.Pool) *PostgresDomainStore {
	return &PostgresDomainStore{
		pool: pool,
	}
}

func (s *PostgresDomainStore) ListInventory(ctx context.Context, restaurantID uuid.UUID) ([]InventoryItem, error) {
	query := `
		SELECT id, restaurant_id, name, unit, quantity, cost_per_unit, updated_at
		FROM inventory_items
		WHERE restaurant_id = $1
	`

	rows, err := s.pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		var item InventoryItem
		if err := rows.Scan(&item.ID, &item.RestaurantID, &item.Name, &item.Unit,
			&item.Quantity, &item.CostPerUnit, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresDomainStore) ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error) {
	query := `
		SELECT id, restaurant_id, name, category, price, is_available
		FROM menu_items
		WHERE restaurant_id = $1
	`

	rows, err := s.pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var item MenuItem
		if err := rows.Scan(&item.ID, &item.RestaurantID, &item.Name, &item.Category,
			&item.Price, &item.IsAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresDomainStore) ListMenuIngredients(ctx context.Context, menuItemIDs []uuid.UUID) ([]MenuIngredient, error) {
	if len(menuItemIDs) == 0 {
		return []MenuIngredient{}, nil
	}

	query := `
		SELECT id, menu_item_id, inventory_item_id, quantity, unit
		FROM menu_ingredients
		WHERE menu_item_id = ANY($1)
	`

	rows, err := s.pool.Query(ctx, query, menuItemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []MenuIngredient
	for rows.Next() {
		var ingredient MenuIngredient
		if err := rows.Scan(&ingredient.ID, &ingredient.MenuItemID,
			&ingredient.InventoryItemID, &ingredient.Quantity, &ingredient.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan menu ingredient: %w", err)
		}
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, rows.Err()
}

func (s *PostgresDomainStore) ListPurchases(ctx context.Context, restaurantID uuid.UUID) ([]PurchaseRecord, error) {
	query := `
		SELECT id, restaurant_id, inventory_item_id, quantity, total_cost, purchased_at
		FROM purchase_history
		WHERE restaurant_id = $1
	`

	rows, err := s.pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var records []PurchaseRecord
	for rows.Next() {
		var record PurchaseRecord
		if err := rows.Scan(&record.ID, &record.RestaurantID, &record.InventoryItemID,
			&record.Quantity, &record.TotalCost, &record.PurchasedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresDomainStore) ListConsumption(ctx context.Context, restaurantID uuid.UUID) ([]ConsumptionRecord, error) {
	query := `
		SELECT id, restaurant_id, inventory_item_id, quantity, reason, consumed_at
		FROM consumption_history
		WHERE restaurant_id = $1
	`

	rows, err := s.pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumption: %w", err)
	}
	defer rows.Close()

	var records []ConsumptionRecord
	for rows.Next() {
		var record ConsumptionRecord
		if err := rows.Scan(&record.ID, &record.RestaurantID, &record.InventoryItemID,
			&record.Quantity, &record.Reason, &record.ConsumedAt); err != nil {
			return nil, fmt.Errorf("failed to scan consumption record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
