// Package registry owns event records and their capacity-bounded
// membership. Every mutation of one event runs inside that event's own
// critical section; different events never wait on each other.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/anonto42/gatherly/backend/internal/storectx"
	"github.com/anonto42/gatherly/backend/validators"
	"github.com/google/uuid"
)

// Store persists committed registry mutations. Calls happen while the
// event's lock is held and before the in-memory commit, so a failing store
// leaves the registry unchanged.
type Store interface {
	InsertEvent(ctx context.Context, event *models.Event) error
	AddMember(ctx context.Context, eventID string, userID uint) error
	RemoveMember(ctx context.Context, eventID string, userID uint) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context) ([]models.Event, error)
}

type nopStore struct{}

func (nopStore) InsertEvent(context.Context, *models.Event) error { return nil }
func (nopStore) AddMember(context.Context, string, uint) error { return nil }
func (nopStore) RemoveMember(context.Context, string, uint) error { return nil }
func (nopStore) DeleteEvent(context.Context, string) error { return nil }
func (nopStore) ListEvents(context.Context) ([]models.Event, error) { return nil, nil }

// entry is one slot of the arena. mu guards every field below it.
type entry struct {
	mu      sync.Mutex
	event   models.Event
	members map[uint]struct{}
	deleted bool
}

// Registry is the EventRegistry.
type Registry struct {
	mu     sync.RWMutex // guards the events map only
	events map[string]*entry
	store  Store
	now    func() time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a Registry. A nil store keeps events in memory only.
func New(store Store, opts ...Option) *Registry {
	if store == nil {
		store = nopStore{}
	}
	r := &Registry{
		events: make(map[string]*entry),
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the arena with the events held by the store.
func (r *Registry) Load(ctx context.Context) error {
	events, err := r.store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	arena := make(map[string]*entry, len(events))
	for _, ev := range events {
		e := &entry{event: ev, members: make(map[uint]struct{}, len(ev.Members))}
		for _, id := range ev.Members {
			e.members[id] = struct{}{}
		}
		if len(e.members) > ev.MaxPeople {
			return fmt.Errorf("load events: event %s holds %d members over capacity %d", ev.ID, len(e.members), ev.MaxPeople)
		}
		e.event.CurrentCount = len(e.members)
		arena[ev.ID] = e
	}
	r.mu.Lock()
	r.events = arena
	r.mu.Unlock()
	return nil
}

// CreateEvent validates spec and stores a new empty event owned by ownerID.
func (r *Registry) CreateEvent(ctx context.Context, ownerID uint, spec models.EventSpec) (*models.Event, error) {
	if ownerID == 0 {
		return nil, apperrors.Validation("owner id is required")
	}
	spec.Category = strings.TrimSpace(spec.Category)
	spec.Title = strings.TrimSpace(spec.Title)
	spec.Description = strings.TrimSpace(spec.Description)
	spec.Location = strings.TrimSpace(spec.Location)
	if err := validators.Struct(spec); err != nil {
		return nil, &apperrors.Error{Kind: apperrors.KindValidation, Message: "invalid event", Err: err}
	}

	e := &entry{
		event: models.Event{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Category:    spec.Category,
			Title:       spec.Title,
			Description: spec.Description,
			Location:    spec.Location,
			StartTime:   spec.StartTime.UTC(),
			EndTime:     spec.EndTime.UTC(),
			MaxPeople:   spec.MaxPeople,
			Members:     []uint{},
			CreatedAt:   r.now().UTC(),
		},
		members: make(map[uint]struct{}),
	}
	snapshot := e.snapshot()
	sctx, cancel := storectx.Detach(ctx)
	defer cancel()
	if err := r.store.InsertEvent(sctx, &snapshot); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	r.mu.Lock()
	r.events[e.event.ID] = e
	r.mu.Unlock()
	return &snapshot, nil
}

// SignUp admits userID to the event if it is not already a member and a
// place is free.
func (r *Registry) SignUp(ctx context.Context, eventID string, userID uint) (*models.Event, error) {
	return r.mutate(eventID, func(e *entry) error {
		if _, ok := e.members[userID]; ok {
			return apperrors.Conflict(apperrors.ReasonAlreadyMember, "user %d is already signed up for event %s", userID, eventID)
		}
		if len(e.members) >= e.event.MaxPeople {
			return apperrors.Conflict(apperrors.ReasonCapacityExceeded, "event %s is full", eventID)
		}
		sctx, cancel := storectx.Detach(ctx)
		defer cancel()
		if err := r.store.AddMember(sctx, eventID, userID); err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		e.members[userID] = struct{}{}
		e.event.CurrentCount = len(e.members)
		return nil
	})
}

// Withdraw removes userID from the event's members.
func (r *Registry) Withdraw(ctx context.Context, eventID string, userID uint) (*models.Event, error) {
	return r.mutate(eventID, func(e *entry) error {
		if _, ok := e.members[userID]; !ok {
			return apperrors.Conflict(apperrors.ReasonNotMember, "user %d is not signed up for event %s", userID, eventID)
		}
		sctx, cancel := storectx.Detach(ctx)
		defer cancel()
		if err := r.store.RemoveMember(sctx, eventID, userID); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		delete(e.members, userID)
		e.event.CurrentCount = len(e.members)
		return nil
	})
}

// DeleteEvent destroys the event when requesterID owns it and returns the
// final snapshot.
func (r *Registry) DeleteEvent(ctx context.Context, eventID string, requesterID uint) (*models.Event, error) {
	ev, err := r.mutate(eventID, func(e *entry) error {
		if e.event.OwnerID != requesterID {
			return apperrors.Authorization("only the owner can delete event %s", eventID)
		}
		sctx, cancel := storectx.Detach(ctx)
		defer cancel()
		if err := r.store.DeleteEvent(sctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		e.deleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	delete(r.events, eventID)
	r.mu.Unlock()
	return ev, nil
}

// GetEvent returns a snapshot of one event.
func (r *Registry) GetEvent(eventID string) (*models.Event, error) {
	return r.mutate(eventID, func(*entry) error { return nil })
}

// ListEvents returns snapshots of every event ordered by start time.
func (r *Registry) ListEvents() []models.Event {
	return r.list(func(*models.Event) bool { return true })
}

// ListEventsByOwner returns the events created by userID.
func (r *Registry) ListEventsByOwner(userID uint) []models.Event {
	return r.list(func(ev *models.Event) bool { return ev.OwnerID == userID })
}

// ListEventsByMember returns the events userID is signed up for.
func (r *Registry) ListEventsByMember(userID uint) []models.Event {
	return r.list(func(ev *models.Event) bool { return ev.HasMember(userID) })
}

// mutate runs fn inside the event's critical section and returns the
// resulting snapshot. The map lock is never held while waiting on an entry.
func (r *Registry) mutate(eventID string, fn func(*entry) error) (*models.Event, error) {
	r.mu.RLock()
	e, ok := r.events[eventID]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("event %s not found", eventID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, apperrors.NotFound("event %s not found", eventID)
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	snapshot := e.snapshot()
	return &snapshot, nil
}

func (r *Registry) list(keep func(*models.Event) bool) []models.Event {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.events))
	for _, e := range r.events {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]models.Event, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			ev := e.snapshot()
			if keep(&ev) {
				out = append(out, ev)
			}
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// snapshot copies the event with a sorted member list. Caller holds e.mu.
func (e *entry) snapshot() models.Event {
	ev := e.event
	ev.Members = make([]uint, 0, len(e.members))
	for id := range e.members {
		ev.Members = append(ev.Members, id)
	}
	slices.Sort(ev.Members)
	ev.CurrentCount = len(ev.Members)
	return ev
}
