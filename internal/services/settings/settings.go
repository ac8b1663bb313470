// Package settings persists the animation settings (mode and cycle duration)
// as a small JSON record in the settings table.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/bbernstein/lacylights-strip/internal/database/models"
	"github.com/bbernstein/lacylights-strip/internal/services/generator"
)

const (
	// Key is the settings row holding the record.
	Key = "animation"
	// Format tags the record layout. Records with another tag are ignored.
	Format = 1
)

// Record is the persisted configuration.
type Record struct {
	Format  int    `json:"format"`
	Mode    int    `json:"mode"`
	CycleMs uint32 `json:"cycleMs"`
}

// Repository is the subset of repositories.SettingRepository the service uses.
type Repository interface {
	FindByKey(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, key, value string) (*models.Setting, error)
	Delete(ctx context.Context, key string) error
}

// Service loads and stores the record.
type Service struct {
	repo     Repository
	defaults Record
}

// NewService creates a settings service. defaults is returned whenever no
// usable record is stored.
func NewService(repo Repository, mode int, cycleMs uint32) *Service {
	return &Service{
		repo:     repo,
		defaults: Record{Format: Format, Mode: mode, CycleMs: cycleMs},
	}
}

// Defaults returns the record used when nothing is stored.
func (s *Service) Defaults() Record {
	return s.defaults
}

// Load returns the stored record. found is false when the defaults were
// returned instead; a corrupt record is logged and treated as missing.
func (s *Service) Load(ctx context.Context) (rec Record, found bool, err error) {
	setting, err := s.repo.FindByKey(ctx, Key)
	if err != nil {
		return s.defaults, false, fmt.Errorf("failed to read settings: %w", err)
	}
	if setting == nil {
		return s.defaults, false, nil
	}

	if err := json.Unmarshal([]byte(setting.Value), &rec); err != nil {
		log.Printf("⚠️  Ignoring unreadable settings record: %v", err)
		return s.defaults, false, nil
	}
	if rec.Format != Format {
		log.Printf("⚠️  Ignoring settings record with format %d", rec.Format)
		return s.defaults, false, nil
	}
	if rec.CycleMs < generator.MinCycleMs {
		log.Printf("⚠️  Ignoring settings record with cycle %dms", rec.CycleMs)
		return s.defaults, false, nil
	}
	return rec, true, nil
}

// Save stores mode and cycle under the current format tag.
func (s *Service) Save(ctx context.Context, mode int, cycleMs uint32) error {
	data, err := json.Marshal(Record{Format: Format, Mode: mode, CycleMs: cycleMs})
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if _, err := s.repo.Upsert(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Delete removes the stored record.
func (s *Service) Delete(ctx context.Context) error {
	if err := s.repo.Delete(ctx, Key); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

// BroadcastKey is the settings row holding an Art-Net broadcast address override.
const BroadcastKey = "artnet_broadcast_address"

// LoadBroadcast returns the saved Art-Net broadcast address, or "" if none is saved.
func (s *Service) LoadBroadcast(ctx context.Context) (string, error) {
	setting, err := s.repo.FindByKey(ctx, BroadcastKey)
	if err != nil {
		return "", fmt.Errorf("failed to read broadcast address: %w", err)
	}
	if setting == nil {
		return "", nil
	}
	return setting.Value, nil
}

// SaveBroadcast stores the Art-Net broadcast address.
func (s *Service) SaveBroadcast(ctx context.Context, addr string) error {
	if _, err := s.repo.Upsert(ctx, BroadcastKey, addr); err != nil {
		return fmt.Errorf("failed to save broadcast address: %w", err)
	}
	return nil
}
