package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tablerock/resto-secure/pkg/secerrors"
)

// Service runs backup passes over every enabled policy
type Service struct {
	repo   Repository
	domain DomainStore
}

// NewService creates a new backup service
func NewService(repo Repository, domain DomainStore) *Service {
	return &Service{
		repo:   repo,
		domain: domain,
	}
}

// RunPass executes one backup pass over all enabled policies. A policy is
// skipped while its most recent snapshot of any type is younger than its
// frequency. One failing policy or backup type never aborts the others;
// only a failure to enumerate policies fails the pass.
func (s *Service) RunPass(ctx context.Context) ([]Result, error) {
	settings, err := s.repo.ListEnabledSettings(ctx)
	if err != nil {
		return nil, secerrors.StoreFailure(err, "failed to list backup policies")
	}

	now := time.Now().UTC()
	results := []Result{}
	for _, setting := range settings {
		results = append(results, s.runPolicy(ctx, setting, now)...)
	}

	slog.Info("Backup pass finished", "policies", len(settings), "results", len(results))
	return results, nil
}

// runPolicy executes one restaurant's policy. A panic inside a policy is
// converted into an error result so the pass continues.
func (s *Service) runPolicy(ctx context.Context, setting Setting, now time.Time) (results []Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Backup policy panicked", "restaurantID", setting.RestaurantID, "panic", r)
			results = append(results, Result{
				RestaurantID: setting.RestaurantID,
				Status:       StatusError,
				Error:        fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	latest, err := s.repo.LatestBackupTime(ctx, setting.RestaurantID)
	if err != nil {
		return append(results, Result{
			RestaurantID: setting.RestaurantID,
			Status:       StatusError,
			Error:        err.Error(),
		})
	}

	// freshness is judged across all types: any recent snapshot defers
	// the whole policy
	if latest != nil && now.Sub(*latest) < setting.Frequency() {
		for _, backupType := range setting.Types {
			results = append(results, Result{
				RestaurantID: setting.RestaurantID,
				BackupType:   backupType,
				Status:       StatusSkipped,
			})
		}
		return results
	}

	for _, backupType := range setting.Types {
		results = append(results, s.runBackup(ctx, setting.RestaurantID, backupType))
	}

	s.applyRetention(ctx, setting, now)
	return results
}

// runBackup snapshots one backup type for one restaurant
func (s *Service) runBackup(ctx context.Context, restaurantID uuid.UUID, backupType BackupType) Result {
	result := Result{
		RestaurantID: restaurantID,
		BackupType:   backupType,
	}

	if !ValidBackupType(backupType) {
		result.Status = StatusError
		result.Error = fmt.Sprintf("unknown backup type %q", backupType)
		return result
	}

	payload, count, err := s.buildPayload(ctx, restaurantID, backupType)
	if err != nil {
		slog.Error("Backup failed", "restaurantID", restaurantID, "backupType", backupType, "error", err)
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	if _, err := s.repo.CreateSnapshot(ctx, Snapshot{
		RestaurantID: restaurantID,
		BackupType:   backupType,
		Payload:      payload,
	}); err != nil {
		slog.Error("Failed to store snapshot", "restaurantID", restaurantID, "backupType", backupType, "error", err)
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = StatusSuccess
	result.Created = count
	slog.Info("Backup created", "restaurantID", restaurantID, "backupType", backupType, "rows", count)
	return result
}

func (s *Service) buildPayload(ctx context.Context, restaurantID uuid.UUID, backupType BackupType) (json.RawMessage, int, error) {
	switch backupType {
	case BackupTypeInventory:
		items, err := s.domain.ListInventory(ctx, restaurantID)
		if err != nil {
			return nil, 0, err
		}
		payload, err := json.Marshal(map[string]interface{}{"items": items})
		return payload, len(items), err

	case BackupTypeMenu:
		items, err := s.domain.ListMenuItems(ctx, restaurantID)
		if err != nil {
			return nil, 0, err
		}
		// ingredients are only fetched when menu items exist; an empty
		// menu yields an empty ingredient set without a lookup
		ingredients := []MenuIngredient{}
		if len(items) > 0 {
			itemIDs := make([]uuid.UUID, 0, len(items))
			for _, item := range items {
				itemIDs = append(itemIDs, item.ID)
			}
			ingredients, err = s.domain.ListMenuIngredients(ctx, itemIDs)
			if err != nil {
				return nil, 0, err
			}
		}
		payload, err := json.Marshal(map[string]interface{}{
			"menu_items":  items,
			"ingredients": ingredients,
		})
		return payload, len(items), err

	case BackupTypeTransactions:
		purchases, err := s.domain.ListPurchases(ctx, restaurantID)
		if err != nil {
			return nil, 0, err
		}
		consumption, err := s.domain.ListConsumption(ctx, restaurantID)
		if err != nil {
			return nil, 0, err
		}
		payload, err := json.Marshal(map[string]interface{}{
			"purchases":   purchases,
			"consumption": consumption,
		})
		return payload, len(purchases) + len(consumption), err

	case BackupTypeSales:
		// sales reporting lives outside this subsystem; the snapshot is
		// an empty placeholder until that data source is wired up
		payload, err := json.Marshal(map[string]interface{}{"sales": []interface{}{}})
		return payload, 0, err
	}

	return nil, 0, fmt.Errorf("unknown backup type %q", backupType)
}

// applyRetention deletes snapshots older than the policy's retention
// window. Best effort: a retention failure is logged, never fails the pass.
func (s *Service) applyRetention(ctx context.Context, setting Setting, now time.Time) {
	if setting.RetentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -setting.RetentionDays)
	deleted, err := s.repo.DeleteOlderThan(ctx, setting.RestaurantID, cutoff)
	if err != nil {
		slog.Error("Retention cleanup failed", "restaurantID", setting.RestaurantID, "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention cleanup removed snapshots", "restaurantID", setting.RestaurantID, "deleted", deleted)
	}
}

// SavePolicy validates and stores a restaurant's backup policy
func (s *Service) SavePolicy(ctx context.Context, setting Setting) (Setting, error) {
	if setting.RestaurantID == uuid.Nil {
		return Setting{}, secerrors.InvalidInput("restaurant_id", "must not be empty")
	}
	if setting.FrequencyHours <= 0 {
		return Setting{}, secerrors.InvalidInput("frequency_hours", "must be positive")
	}
	if setting.RetentionDays < 0 {
		return Setting{}, secerrors.InvalidInput("retention_days", "must not be negative")
	}
	for _, backupType := range setting.Types {
		if !ValidBackupType(backupType) {
			return Setting{}, secerrors.InvalidInput("types", fmt.Sprintf("unknown backup type %q", backupType))
		}
	}

	saved, err := s.repo.UpsertSetting(ctx, setting)
	if err != nil {
		return Setting{}, secerrors.StoreFailure(err, "failed to save backup policy")
	}
	return saved, nil
}
