// Package control is the configuration surface of the strip: it validates and
// applies mode and cycle changes, persists them and announces them to subscribers.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/internal/services/modes"
	"github.com/bbernstein/lacylights-strip/internal/services/pubsub"
	"github.com/bbernstein/lacylights-strip/internal/services/settings"
)

var (
	// ErrInvalidMode is returned for a mode outside the table.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidCycle is returned for a cycle shorter than generator.MinCycleMs.
	ErrInvalidCycle = errors.New("invalid cycle duration")
)

// Store persists the settings record.
type Store interface {
	Defaults() settings.Record
	Load(ctx context.Context) (settings.Record, bool, error)
	Save(ctx context.Context, mode int, cycleMs uint32) error
	Delete(ctx context.Context) error
}

// Update is a partial configuration change; nil fields are left alone.
type Update struct {
	Mode    *int
	CycleMs *uint32
}

// State is the current configuration as reported to clients.
type State struct {
	Mode     int    `json:"mode"`
	ModeName string `json:"modeName"`
	CycleMs  uint32 `json:"cycleMs"`
}

// Service applies configuration changes to the mode table and generator parameters.
type Service struct {
	mu     sync.Mutex
	table  *modes.Table
	params *generator.Params
	store  Store
	ps     *pubsub.PubSub
}

// NewService creates a control service. ps may be nil.
func NewService(table *modes.Table, params *generator.Params, store Store, ps *pubsub.PubSub) *Service {
	return &Service{
		table:  table,
		params: params,
		store:  store,
		ps:     ps,
	}
}

// Mode returns the active mode.
func (s *Service) Mode() int {
	return s.table.Mode()
}

// Cycle returns the cycle duration in milliseconds.
func (s *Service) Cycle() uint32 {
	return s.params.Cycle()
}

// State returns the current configuration.
func (s *Service) State() State {
	m := s.table.Mode()
	name := ""
	if e, ok := s.table.Lookup(m); ok {
		name = e.Name
	}
	return State{Mode: m, ModeName: name, CycleMs: s.params.Cycle()}
}

// Modes lists the registered mode names by index.
func (s *Service) Modes() []string {
	return s.table.Names()
}

// SetMode selects a mode and persists it.
func (s *Service) SetMode(ctx context.Context, m int) error {
	return s.Apply(ctx, Update{Mode: &m})
}

// SetCycle changes the cycle duration of every mode and persists it.
func (s *Service) SetCycle(ctx context.Context, ms uint32) error {
	return s.Apply(ctx, Update{CycleMs: &ms})
}

// Apply validates every field of u before changing anything, applies it and
// persists the result once.
func (s *Service) Apply(ctx context.Context, u Update) error {
	if u.Mode == nil && u.CycleMs == nil {
		return nil
	}
	if u.Mode != nil && !s.table.Valid(*u.Mode) {
		return fmt.Errorf("%w: %d (0-%d)", ErrInvalidMode, *u.Mode, s.table.Len()-1)
	}
	if u.CycleMs != nil && *u.CycleMs < generator.MinCycleMs {
		return fmt.Errorf("%w: %dms (minimum %dms)", ErrInvalidCycle, *u.CycleMs, generator.MinCycleMs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Mode != nil {
		s.table.SetMode(*u.Mode)
	}
	if u.CycleMs != nil {
		s.params.SetCycle(*u.CycleMs)
		// sparks pick their intervals from the cycle
		s.table.Invalidate()
	}

	state := s.State()
	s.publish(state)

	if err := s.store.Save(ctx, state.Mode, state.CycleMs); err != nil {
		return fmt.Errorf("failed to persist configuration: %w", err)
	}
	return nil
}

// Clear restores the default configuration and deletes the persisted record.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset(s.store.Defaults())
	s.publish(s.State())

	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to clear configuration: %w", err)
	}
	log.Printf("🎨 Configuration cleared")
	return nil
}

// Restore loads the persisted configuration, falling back to the defaults.
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found, err := s.store.Load(ctx)
	s.reset(rec)
	if err != nil {
		return fmt.Errorf("failed to restore configuration: %w", err)
	}

	state := s.State()
	if found {
		log.Printf("🎨 Restored mode %d (%s), cycle %dms", state.Mode, state.ModeName, state.CycleMs)
	} else {
		log.Printf("🎨 Using default mode %d (%s), cycle %dms", state.Mode, state.ModeName, state.CycleMs)
	}
	return nil
}

func (s *Service) reset(rec settings.Record) {
	s.table.SetMode(s.table.Resolve(rec.Mode))
	s.params.SetCycle(rec.CycleMs)
	s.table.Invalidate()
}

func (s *Service) publish(state State) {
	if s.ps != nil {
		s.ps.Publish(pubsub.TopicSettings, state)
	}
}
