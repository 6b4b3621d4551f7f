package backup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPolicy(t *testing.T, repo *InMemRepository, restaurantID uuid.UUID, frequencyHours, retentionDays int, types ...BackupType) Setting {
	t.Helper()
	setting, err := repo.UpsertSetting(context.Background(), Setting{
		RestaurantID:      restaurantID,
		AutoBackupEnabled: true,
		FrequencyHours:    frequencyHours,
		Types:             types,
		RetentionDays:     retentionDays,
	})
	require.NoError(t, err)
	return setting
}

func resultsByType(results []Result) map[BackupType]Result {
	out := make(map[BackupType]Result)
	for _, result := range results {
		out[result.BackupType] = result
	}
	return out
}

func TestRunPassSkipsFreshPolicy(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemRepository()
	restaurantID := uuid.New()
	seedPolicy(t, repo, restaurantID, 24, 30, BackupTypeInventory, BackupTypeMenu)

	// last backup 10 hours ago, frequency 24h
	repo.insertSnapshotAt(Snapshot{
		RestaurantID: restaurantID,
		BackupType:   BackupTypeInventory,
		Payload:      json.RawMessage(`{}`),
	}, time.Now().UTC().Add(-10*time.Hour))

	svc := NewService(repo, NewInMemDomainStore())
	results, err := svc.RunPass(ctx)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, StatusSkipped, result.Status)
	}
	// nothing new was written
	assert.Len(t, repo.Snapshots(), 1)
}

func TestRunPassSnapshotsConfiguredTypes(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemRepository()
	domain := NewInMemDomainStore()
	restaurantID := uuid.New()
	seedPolicy(t, repo, restaurantID, 24, 30, BackupTypeInventory, BackupTypeMenu)

	for i := 0; i < 3; i++ {
		domain.AddInventoryItem(InventoryItem{RestaurantID: restaurantID, Name: "item", Unit: "kg"})
	}
	domain.AddMenuItem(MenuItem{RestaurantID: restaurantID, Name: "pasta"})
	domain.AddMenuItem(MenuItem{RestaurantID: restaurantID, Name: "salad"})

	svc := NewService(repo, domain)
	results, err := svc.RunPass(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byType := resultsByType(results)
	assert.Equal(t, StatusSuccess, byType[BackupTypeInventory].Status)
	assert.Equal(t, 3, byType[BackupTypeInventory].Created)
	assert.Equal(t, StatusSuccess, byType[BackupTypeMenu].Status)
	assert.Equal(t, 2, byType[BackupTypeMenu].Created)

	snapshots := repo.Snapshots()
	require.Len(t, snapshots, 2)

	// menu payload carries the (empty) ingredient set alongside the items
	for _, snapshot := range snapshots {
		if snapshot.BackupType != BackupTypeMenu {
			continue
		}
		var payload struct {
			MenuItems   []MenuItem       `json:"menu_items"`
			Ingredients []MenuIngredient `json:"ingredients"`
		}
		require.NoError(t, json.Unmarshal(snapshot.Payload, &payload))
		assert.Len(t, payload.MenuItems, 2)
		assert.Empty(t, payload.Ingredients)
	}
}

func TestRunPassRetention(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemRepository()
	restaurantID := uuid.New()
	seedPolicy(t, repo, restaurantID, 24, 30, BackupTypeInventory)

	now := time.Now().UTC()
	for _, age := range []int{10, 40, 50} {
		repo.insertSnapshotAt(Snapshot{
			RestaurantID: restaurantID,
			BackupType:   BackupTypeInventory,
			Payload:      json.RawMessage(`{}`),
		}, now.AddDate(0, 0, -age))
	}

	svc := NewService(repo, NewInMemDomainStore())
	results, err := svc.RunPass(ctx)
	require.NoError(t, err)

	// the 10-day-old snapshot is stale relative to the 24h frequency, so a
	// new one is taken and retention prunes the 40- and 50-day-old rows
	require.Len(t, results, 1)
	assert.Equal(t, StatusSuccess, results[0].Status)

	var ages []time.Duration
	for _, snapshot := range repo.Snapshots() {
		ages = append(ages, now.Sub(snapshot.CreatedAt))
	}
	require.Len(t, ages, 2)
	for _, age := range ages {
		assert.Less(t, age, 30*24*time.Hour)
	}
}

func TestRunPassSalesPlaceholder(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemRepository()
	restaurantID := uuid.New()
	seedPolicy(t, repo, restaurantID, 24, 30, BackupTypeSales)

	svc := NewService(repo, NewInMemDomainStore())
	results, err := svc.RunPass(ctx)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, 0, results[0].Created)

	snapshots := repo.Snapshots()
	require.Len(t, snapshots, 1)
	assert.JSONEq(t, `{"sales":[]}`, string(snapshots[0].Payload))
}

// failingDomainStore errors on inventory reads only
type failingDomainStore struct {
	*InMemDomainStore
}

func (s *failingDomainStore) ListInventory(ctx context.Context, restaurantID uuid.UUID) ([]InventoryItem, error) {
	return nil, errors.New("inventory table unavailable")
}

func TestRunPassIsolatesTypeFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemRepository()
	domain := &failingDomainStore{InMemDomainStore: NewInMemDomainStore()}
	restaurantID := uuid.New()
	seedPolicy(t, repo, restaurantID, 24, 30, BackupTypeInventory, BackupTypeMenu)

	domain.AddMenuItem(MenuItem{RestaurantID: restaurantID, Name: "soup"})

	svc := NewService(repo, domain)
	results, err := svc.RunPass(ctx)
	require.NoError(t, err)

	byType := resultsByType(results)
	assert.Equal(t, StatusError, byType[BackupTypeInventory].Status)
	assert.Contains(t, byType[BackupTypeInventory].Error, "inventory table unavailable")
	assert.Equal(t, StatusSuccess, byType[BackupTypeMenu].Status)
}

func TestRunPassIsolatesPolicyFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemRepository()
	domain := &failingDomainStore{InMemDomainStore: NewInMemDomainStore()}
	brokenID := uuid.New()
	healthyID := uuid.New()
	seedPolicy(t, repo, brokenID, 24, 30, BackupTypeInventory)
	seedPolicy(t, repo, healthyID, 24, 30, BackupTypeSales)

	svc := NewService(repo, domain)
	results, err := svc.RunPass(ctx)
	require.NoError(t, err)

	statuses := make(map[uuid.UUID]string)
	for _, result := range results {
		statuses[result.RestaurantID] = result.Status
	}
	assert.Equal(t, StatusError, statuses[brokenID])
	assert.Equal(t, StatusSuccess, statuses[healthyID])
}

func TestSavePolicyValidation(t *testing.T) {
	svc := NewService(NewInMemRepository(), NewInMemDomainStore())

	_, err := svc.SavePolicy(context.Background(), Setting{
		RestaurantID:   uuid.New(),
		FrequencyHours: 24,
		Types:          []BackupType{"mystery"},
	})
	assert.Error(t, err)

	_, err = svc.SavePolicy(context.Background(), Setting{
		RestaurantID:   uuid.New(),
		FrequencyHours: 0,
	})
	assert.Error(t, err)

	saved, err := svc.SavePolicy(context.Background(), Setting{
		RestaurantID:      uuid.New(),
		AutoBackupEnabled: true,
		FrequencyHours:    24,
		Types:             []BackupType{BackupTypeInventory},
		RetentionDays:     30,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
}
