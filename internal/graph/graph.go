// Package graph owns the symmetric friend relation. Both directions of an
// edge change in one critical section, so AreFriends(a, b) and
// AreFriends(b, a) always agree.
package graph

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/anonto42/gatherly/backend/internal/storectx"
)

// Store persists edges. Implementations must treat InsertEdge on an
// existing edge and DeleteEdge on a missing one as success.
type Store interface {
	InsertEdge(ctx context.Context, a, b uint) error
	DeleteEdge(ctx context.Context, a, b uint) error
	ListEdges(ctx context.Context) ([]models.FriendEdge, error)
}

type nopStore struct{}

func (nopStore) InsertEdge(context.Context, uint, uint) error { return nil }
func (nopStore) DeleteEdge(context.Context, uint, uint) error { return nil }
func (nopStore) ListEdges(context.Context) ([]models.FriendEdge, error) { return nil, nil }

// Graph is the RelationshipGraph. The whole adjacency map is one unit of
// mutual exclusion.
type Graph struct {
	mu    sync.RWMutex
	adj   map[uint]map[uint]struct{}
	store Store
}

// New creates a Graph. A nil store keeps edges in memory only.
func New(store Store) *Graph {
	if store == nil {
		store = nopStore{}
	}
	return &Graph{adj: make(map[uint]map[uint]struct{}), store: store}
}

// Load replaces the adjacency map with the edges held by the store.
func (g *Graph) Load(ctx context.Context) error {
	edges, err := g.store.ListEdges(ctx)
	if err != nil {
		return fmt.Errorf("load edges: %w", err)
	}
	adj := make(map[uint]map[uint]struct{})
	for _, e := range edges {
		if e.UserID == e.FriendID {
			continue
		}
		link(adj, e.UserID, e.FriendID)
		link(adj, e.FriendID, e.UserID)
	}
	g.mu.Lock()
	g.adj = adj
	g.mu.Unlock()
	return nil
}

func (g *Graph) AreFriends(a, b uint) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.adj[a][b]
	return ok
}

// ListFriends returns userID's friends in ascending order.
func (g *Graph) ListFriends(userID uint) []uint {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]uint, 0, len(g.adj[userID]))
	for id := range g.adj[userID] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// AddEdge makes a and b friends. Adding an existing edge is a no-op.
func (g *Graph) AddEdge(ctx context.Context, a, b uint) error {
	return g.addEdge(ctx, a, b, nil)
}

// AddEdgeWith makes a and b friends, running persist in place of the
// store's InsertEdge. persist runs even when the edge already exists so the
// caller can commit its own records in the same critical section.
func (g *Graph) AddEdgeWith(ctx context.Context, a, b uint, persist func(context.Context) error) error {
	if persist == nil {
		return fmt.Errorf("add edge: nil persist func")
	}
	return g.addEdge(ctx, a, b, persist)
}

func (g *Graph) addEdge(ctx context.Context, a, b uint, persist func(context.Context) error) error {
	if err := checkPair(a, b); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ctx, cancel := storectx.Detach(ctx)
	defer cancel()

	_, exists := g.adj[a][b]
	switch {
	case persist != nil:
		if err := persist(ctx); err != nil {
			return err
		}
	case !exists:
		if err := g.store.InsertEdge(ctx, a, b); err != nil {
			return fmt.Errorf("insert edge: %w", err)
		}
	}
	if !exists {
		link(g.adj, a, b)
		link(g.adj, b, a)
	}
	return nil
}

// RemoveEdge drops both directions. Removing a missing edge is a no-op.
func (g *Graph) RemoveEdge(ctx context.Context, a, b uint) error {
	if err := checkPair(a, b); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.adj[a][b]; !ok {
		return nil
	}
	sctx, cancel := storectx.Detach(ctx)
	defer cancel()
	if err := g.store.DeleteEdge(sctx, a, b); err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	unlink(g.adj, a, b)
	unlink(g.adj, b, a)
	return nil
}

func checkPair(a, b uint) error {
	if a == 0 || b == 0 {
		return apperrors.Validation("user ids are required")
	}
	if a == b {
		return apperrors.Validation("user %d cannot be their own friend", a)
	}
	return nil
}

func link(adj map[uint]map[uint]struct{}, from, to uint) {
	set, ok := adj[from]
	if !ok {
		set = make(map[uint]struct{})
		adj[from] = set
	}
	set[to] = struct{}{}
}

func unlink(adj map[uint]map[uint]struct{}, from, to uint) {
	delete(adj[from], to)
	if len(adj[from]) == 0 {
		delete(adj, from)
	}
}
