// Package coordinator is the single entry point for event and friendship
// operations. It authenticates the acting user, checks authorization and
// input once, and delegates to the registry, graph and ledger, each of which
// commits atomically on its own.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/graph"
	"github.com/anonto42/gatherly/backend/internal/ledger"
	"github.com/anonto42/gatherly/backend/internal/metrics"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/anonto42/gatherly/backend/internal/registry"
	"github.com/rs/zerolog"
)

// UserDirectory resolves user ids. GetUserByID returns an error matching
// apperrors.ErrNotFound for unknown ids.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Notifier delivers a committed notification out of band. Delivery failures
// never affect the operation that produced the notification.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// DefaultDeliveryTimeout bounds one out-of-band delivery.
const DefaultDeliveryTimeout = 30 * time.Second

type Option func(*Coordinator)

func WithUserDirectory(users UserDirectory) Option {
	return func(c *Coordinator) { c.users = users }
}

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithDeliveryTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.deliveryTimeout = d }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

type Coordinator struct {
	events *registry.Registry
	graph  *graph.Graph
	ledger *ledger.Ledger

	users           UserDirectory
	notifier        Notifier
	deliveryTimeout time.Duration
	log             zerolog.Logger

	inflight sync.WaitGroup
}

func New(events *registry.Registry, g *graph.Graph, l *ledger.Ledger, opts ...Option) *Coordinator {
	c := &Coordinator{
		events: events,
		graph:  g,
		ledger: l,
		log:    zerolog.Nop(),

		deliveryTimeout: DefaultDeliveryTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load hydrates every leaf from its store.
func (c *Coordinator) Load(ctx context.Context) error {
	if err := c.events.Load(ctx); err != nil {
		return err
	}
	if err := c.graph.Load(ctx); err != nil {
		return err
	}
	return c.ledger.Load(ctx)
}

// Wait blocks until every pending out-of-band delivery has finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

func (c *Coordinator) CreateEvent(ctx context.Context, actor uint, spec models.EventSpec) (ev *models.Event, err error) {
	defer c.observe("create_event", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	ev, err = c.events.CreateEvent(ctx, actor, spec)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("event_id", ev.ID).Uint("owner_id", actor).Int("max_people", ev.MaxPeople).Msg("event created")
	return ev, nil
}

func (c *Coordinator) ListEvents(_ context.Context, actor uint) (out []models.Event, err error) {
	defer c.observe("list_events", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	return c.events.ListEvents(), nil
}

// ListEventsByOwner returns the events created by owner.
func (c *Coordinator) ListEventsByOwner(_ context.Context, actor, owner uint) (out []models.Event, err error) {
	defer c.observe("list_events_by_owner", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	if owner == 0 {
		return nil, apperrors.Validation("owner id is required")
	}
	return c.events.ListEventsByOwner(owner), nil
}

// ListEventsByMember returns the events member is signed up for.
func (c *Coordinator) ListEventsByMember(_ context.Context, actor, member uint) (out []models.Event, err error) {
	defer c.observe("list_events_by_member", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	if member == 0 {
		return nil, apperrors.Validation("member id is required")
	}
	return c.events.ListEventsByMember(member), nil
}

func (c *Coordinator) GetEvent(_ context.Context, actor uint, eventID string) (ev *models.Event, err error) {
	defer c.observe("get_event", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	if eventID, err = requireID("event", eventID); err != nil {
		return nil, err
	}
	return c.events.GetEvent(eventID)
}

func (c *Coordinator) SignUp(ctx context.Context, actor uint, eventID string) (ev *models.Event, err error) {
	defer c.observe("sign_up", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	if eventID, err = requireID("event", eventID); err != nil {
		return nil, err
	}
	ev, err = c.events.SignUp(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	metrics.EventSignups.WithLabelValues("sign_up").Inc()
	return ev, nil
}

func (c *Coordinator) Withdraw(ctx context.Context, actor uint, eventID string) (ev *models.Event, err error) {
	defer c.observe("withdraw", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	if eventID, err = requireID("event", eventID); err != nil {
		return nil, err
	}
	ev, err = c.events.Withdraw(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	metrics.EventSignups.WithLabelValues("withdraw").Inc()
	return ev, nil
}

// DeleteEvent removes an event owned by actor and tells every former member
// it was cancelled.
func (c *Coordinator) DeleteEvent(ctx context.Context, actor uint, eventID string) (ev *models.Event, err error) {
	defer c.observe("delete_event", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	if eventID, err = requireID("event", eventID); err != nil {
		return nil, err
	}
	ev, err = c.events.DeleteEvent(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("event_id", ev.ID).Int("members", len(ev.Members)).Msg("event deleted")

	for _, member := range ev.Members {
		if member == ev.OwnerID {
			continue
		}
		n, perr := c.ledger.Post(ctx, models.Notification{
			Type:        models.NotificationEventCancelled,
			SenderID:    ev.OwnerID,
			RecipientID: member,
			TargetID:    ev.ID,
			Message:     fmt.Sprintf("%q was cancelled by its organizer", ev.Title),
		})
		if perr != nil {
			// delete already committed
			c.log.Error().Err(perr).Str("event_id", ev.ID).Uint("recipient_id", member).Msg("post cancellation notice")
			continue
		}
		c.deliver(ctx, *n)
	}
	return ev, nil
}

func (c *Coordinator) SendFriendRequest(ctx context.Context, sender, recipient uint) (n *models.Notification, err error) {
	defer c.observe("send_friend_request", &err)
	if err = authenticate(sender); err != nil {
		return nil, err
	}
	if recipient == 0 {
		return nil, apperrors.Validation("recipient id is required")
	}
	if sender == recipient {
		return nil, apperrors.Validation("cannot send a friend request to yourself")
	}
	if c.users != nil {
		if _, err = c.users.GetUserByID(ctx, recipient); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("user %d not found", recipient)
			}
			return nil, fmt.Errorf("look up recipient: %w", err)
		}
	}
	n, err = c.ledger.CreateRequest(ctx, sender, recipient)
	if err != nil {
		return nil, err
	}
	c.deliver(ctx, *n)
	return n, nil
}

// ListFriendRequests returns recipient's pending friend requests, newest first.
func (c *Coordinator) ListFriendRequests(_ context.Context, recipient uint) (out []models.Notification, err error) {
	defer c.observe("list_friend_requests", &err)
	if err = authenticate(recipient); err != nil {
		return nil, err
	}
	out = make([]models.Notification, 0)
	for _, n := range c.ledger.ListPendingFor(recipient) {
		if n.Type == models.NotificationFriendRequest {
			out = append(out, n)
		}
	}
	return out, nil
}

// ResolveFriendRequest accepts or rejects a pending request addressed to
// actor. Accepting returns the new edge; rejecting returns nil.
func (c *Coordinator) ResolveFriendRequest(ctx context.Context, actor uint, id string, outcome models.Outcome) (edge *models.FriendEdge, err error) {
	defer c.observe("resolve_friend_request", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	if id, err = requireID("notification", id); err != nil {
		return nil, err
	}
	if outcome != models.OutcomeAccept && outcome != models.OutcomeReject {
		return nil, apperrors.Validation("outcome must be %q or %q", models.OutcomeAccept, models.OutcomeReject)
	}
	edge, err = c.ledger.Resolve(ctx, id, actor, outcome)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("notification_id", id).Uint("actor_id", actor).Str("outcome", string(outcome)).Msg("friend request resolved")
	return edge, nil
}

func (c *Coordinator) ListFriends(_ context.Context, actor uint) (out []uint, err error) {
	defer c.observe("list_friends", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	return c.graph.ListFriends(actor), nil
}

// RemoveFriend ends the friendship between actor and friend. Removing a
// friendship that does not exist succeeds.
func (c *Coordinator) RemoveFriend(ctx context.Context, actor, friend uint) (err error) {
	defer c.observe("remove_friend", &err)
	if err = authenticate(actor); err != nil {
		return err
	}
	return c.graph.RemoveEdge(ctx, actor, friend)
}

// ListNotifications returns every pending notification addressed to actor.
func (c *Coordinator) ListNotifications(_ context.Context, actor uint) (out []models.Notification, err error) {
	defer c.observe("list_notifications", &err)
	if err = authenticate(actor); err != nil {
		return nil, err
	}
	return c.ledger.ListPendingFor(actor), nil
}

func (c *Coordinator) DismissNotification(ctx context.Context, actor uint, id string) (err error) {
	defer c.observe("dismiss_notification", &err)
	if err = authenticate(actor); err != nil {
		return err
	}
	if id, err = requireID("notification", id); err != nil {
		return err
	}
	return c.ledger.Dismiss(ctx, id, actor)
}

// deliver hands n to the notifier on a detached goroutine bounded by the
// delivery timeout.
func (c *Coordinator) deliver(ctx context.Context, n models.Notification) {
	if c.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, c.deliveryTimeout)
		defer cancel()
		if err := c.notifier.Notify(ctx, n); err != nil {
			c.log.Warn().Err(err).Str("notification_id", n.ID).Str("type", string(n.Type)).Msg("notification delivery failed")
		}
	}()
}

func (c *Coordinator) observe(op string, err *error) {
	metrics.RecordOperation(op, *err)
	if *err != nil && apperrors.KindOf(*err) == apperrors.KindInternal {
		c.log.Error().Err(*err).Str("operation", op).Msg("operation failed")
	}
}

func authenticate(actor uint) error {
	if actor == 0 {
		return apperrors.Unauthenticated("authentication required")
	}
	return nil
}

func requireID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.Validation("%s id is required", kind)
	}
	return id, nil
}
