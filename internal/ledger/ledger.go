// Package ledger tracks notifications addressed to users and the lifecycle
// of friend requests. Accepting a request and creating the friendship commit
// together: the ledger lock is held across the graph's critical section, and
// the lock order is always ledger then graph.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/anonto42/gatherly/backend/internal/storectx"
	"github.com/oklog/ulid/v2"
)

// Store persists ledger transitions. AcceptFriendRequest must commit the
// edge rows and both status changes in one transaction; reverseID is empty
// when no reverse request is pending. GetNotification returns an error
// matching apperrors.ErrNotFound for unknown ids.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	AcceptFriendRequest(ctx context.Context, id, reverseID string, sender, recipient uint, at time.Time) error
	SetStatus(ctx context.Context, id string, status models.NotificationStatus, at time.Time) error
	ListPending(ctx context.Context) ([]models.Notification, error)
}

// Edges is the part of the relationship graph the ledger drives.
type Edges interface {
	AreFriends(a, b uint) bool
	AddEdgeWith(ctx context.Context, a, b uint, persist func(context.Context) error) error
}

type nopStore struct{}

func (nopStore) CreateNotification(context.Context, *models.Notification) error { return nil }
func (nopStore) GetNotification(_ context.Context, id string) (*models.Notification, error) {
	return nil, apperrors.NotFound("notification %s not found", id)
}
func (nopStore) AcceptFriendRequest(context.Context, string, string, uint, uint, time.Time) error {
	return nil
}
func (nopStore) SetStatus(context.Context, string, models.NotificationStatus, time.Time) error {
	return nil
}
func (nopStore) ListPending(context.Context) ([]models.Notification, error) { return nil, nil }

type pair struct{ sender, recipient uint }

// tombstone remembers who resolved a notification and how.
type tombstone struct {
	recipient uint
	status    models.NotificationStatus
}

// Ledger is the NotificationLedger.
type Ledger struct {
	mu       sync.RWMutex
	pending  map[string]*models.Notification
	inbox    map[uint]map[string]struct{}
	pairs    map[pair]string
	resolved map[string]tombstone

	store Store
	edges Edges
	now   func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger that commits accepted requests into edges. A nil
// store keeps notifications in memory only.
func New(store Store, edges Edges, opts ...Option) *Ledger {
	if store == nil {
		store = nopStore{}
	}
	l := &Ledger{
		pending:  make(map[string]*models.Notification),
		inbox:    make(map[uint]map[string]struct{}),
		pairs:    make(map[pair]string),
		resolved: make(map[string]tombstone),
		store:    store,
		edges:    edges,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the ledger's state with the pending notifications held by
// the store. Resolved notifications are fetched on demand by lookup.
func (l *Ledger) Load(ctx context.Context) error {
	items, err := l.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = make(map[string]*models.Notification, len(items))
	l.inbox = make(map[uint]map[string]struct{})
	l.pairs = make(map[pair]string)
	l.resolved = make(map[string]tombstone)
	for i := range items {
		n := items[i]
		if n.Status != models.StatusPending {
			continue
		}
		l.insert(&n)
	}
	return nil
}

// CreateRequest records a pending friend request from sender to recipient.
func (l *Ledger) CreateRequest(ctx context.Context, sender, recipient uint) (*models.Notification, error) {
	if sender == 0 || recipient == 0 {
		return nil, apperrors.Validation("sender and recipient are required")
	}
	if sender == recipient {
		return nil, apperrors.Validation("cannot send a friend request to yourself")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.edges.AreFriends(sender, recipient) {
		return nil, apperrors.Conflict(apperrors.ReasonAlreadyFriends, "users %d and %d are already friends", sender, recipient)
	}
	if id, ok := l.pairs[pair{sender, recipient}]; ok {
		return nil, apperrors.Conflict(apperrors.ReasonDuplicatePending, "friend request %s is already pending", id)
	}

	n := &models.Notification{
		ID:          ulid.Make().String(),
		Type:        models.NotificationFriendRequest,
		SenderID:    sender,
		RecipientID: recipient,
		Status:      models.StatusPending,
		CreatedAt:   l.now().UTC(),
	}
	sctx, cancel := storectx.Detach(ctx)
	defer cancel()
	if err := l.store.CreateNotification(sctx, n); err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}
	l.insert(n)
	out := *n
	return &out, nil
}

// Post records a system notification such as an event cancellation.
func (l *Ledger) Post(ctx context.Context, n models.Notification) (*models.Notification, error) {
	if n.RecipientID == 0 {
		return nil, apperrors.Validation("recipient is required")
	}
	if n.Type == models.NotificationFriendRequest || n.Type == "" {
		return nil, apperrors.Validation("unsupported notification type %q", n.Type)
	}
	n.ID = ulid.Make().String()
	n.Status = models.StatusPending
	n.CreatedAt = l.now().UTC()
	n.ResolvedAt = nil

	l.mu.Lock()
	defer l.mu.Unlock()
	sctx, cancel := storectx.Detach(ctx)
	defer cancel()
	if err := l.store.CreateNotification(sctx, &n); err != nil {
		return nil, fmt.Errorf("post notification: %w", err)
	}
	l.insert(&n)
	out := n
	return &out, nil
}

// ListPendingFor returns recipient's pending notifications, newest first.
func (l *Ledger) ListPendingFor(recipient uint) []models.Notification {
	l.mu.RLock()
	out := make([]models.Notification, 0, len(l.inbox[recipient]))
	for id := range l.inbox[recipient] {
		out = append(out, *l.pending[id])
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Resolve applies the recipient's outcome to a pending friend request. On
// accept it returns the resulting edge.
func (l *Ledger) Resolve(ctx context.Context, id string, actor uint, outcome models.Outcome) (*models.FriendEdge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := storectx.Detach(ctx)
	defer cancel()

	n, err := l.lookup(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if n.Type != models.NotificationFriendRequest {
		return nil, apperrors.Validation("notification %s is not a friend request", id)
	}

	at := l.now().UTC()
	switch outcome {
	case models.OutcomeAccept:
		reverseID := l.pairs[pair{n.RecipientID, n.SenderID}]
		persist := func(ctx context.Context) error {
			if err := l.store.AcceptFriendRequest(ctx, id, reverseID, n.SenderID, n.RecipientID, at); err != nil {
				return fmt.Errorf("accept friend request: %w", err)
			}
			return nil
		}
		if err := l.edges.AddEdgeWith(ctx, n.SenderID, n.RecipientID, persist); err != nil {
			return nil, err
		}
		l.remove(id, models.StatusAccepted)
		if reverseID != "" {
			l.remove(reverseID, models.StatusAccepted)
		}
		edge := models.NewFriendEdge(n.SenderID, n.RecipientID)
		edge.CreatedAt = at
		return &edge, nil
	case models.OutcomeReject:
		if err := l.store.SetStatus(ctx, id, models.StatusRejected, at); err != nil {
			return nil, fmt.Errorf("reject friend request: %w", err)
		}
		l.remove(id, models.StatusRejected)
		return nil, nil
	default:
		return nil, apperrors.Validation("unknown outcome %q", outcome)
	}
}

// Dismiss clears a pending notification that needs no answer. Friend
// requests must be resolved instead.
func (l *Ledger) Dismiss(ctx context.Context, id string, actor uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := storectx.Detach(ctx)
	defer cancel()

	n, err := l.lookup(ctx, id, actor)
	if err != nil {
		return err
	}
	if n.Type == models.NotificationFriendRequest {
		return apperrors.Validation("friend request %s must be accepted or rejected", id)
	}
	if err := l.store.SetStatus(ctx, id, models.StatusDismissed, l.now().UTC()); err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	l.remove(id, models.StatusDismissed)
	return nil
}

// lookup finds a pending notification owned by actor. Ids resolved before
// the last Load are looked up in the store so that they still report
// AlreadyResolved. Caller holds l.mu.
func (l *Ledger) lookup(ctx context.Context, id string, actor uint) (*models.Notification, error) {
	if n, ok := l.pending[id]; ok {
		if n.RecipientID != actor {
			return nil, apperrors.Authorization("notification %s is addressed to another user", id)
		}
		return n, nil
	}

	ts, seen := l.resolved[id]
	if !seen {
		stored, err := l.store.GetNotification(ctx, id)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, apperrors.NotFound("notification %s not found", id)
		case err != nil:
			return nil, fmt.Errorf("get notification: %w", err)
		case stored.Status == models.StatusPending:
			// never loaded into this ledger
			return nil, apperrors.NotFound("notification %s not found", id)
		}
		ts = tombstone{recipient: stored.RecipientID, status: stored.Status}
		l.resolved[id] = ts
	}
	if ts.recipient != actor {
		return nil, apperrors.Authorization("notification %s is addressed to another user", id)
	}
	return nil, apperrors.State(apperrors.ReasonAlreadyResolved, "notification %s is already %s", id, ts.status)
}

// insert indexes a pending notification. Caller holds l.mu.
func (l *Ledger) insert(n *models.Notification) {
	l.pending[n.ID] = n
	set, ok := l.inbox[n.RecipientID]
	if !ok {
		set = make(map[string]struct{})
		l.inbox[n.RecipientID] = set
	}
	set[n.ID] = struct{}{}
	if n.Type == models.NotificationFriendRequest {
		l.pairs[pair{n.SenderID, n.RecipientID}] = n.ID
	}
}

// remove moves a notification from the pending indexes to the tombstones.
// Caller holds l.mu.
func (l *Ledger) remove(id string, status models.NotificationStatus) {
	n, ok := l.pending[id]
	if !ok {
		return
	}
	delete(l.pending, id)
	delete(l.inbox[n.RecipientID], id)
	if len(l.inbox[n.RecipientID]) == 0 {
		delete(l.inbox, n.RecipientID)
	}
	if n.Type == models.NotificationFriendRequest {
		delete(l.pairs, pair{n.SenderID, n.RecipientID})
	}
	l.resolved[id] = tombstone{recipient: n.RecipientID, status: status}
}
