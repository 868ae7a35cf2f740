package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/graph"
	"github.com/anonto42/gatherly/backend/internal/ledger"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.FriendEdge{}, &models.Notification{}))
	return db
}

func createUser(t *testing.T, repo *PostgresUserRepository) *models.User {
	t.Helper()
	u := &models.User{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: "hashed",
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresUserRepository(setupTestDB(t))

	u := createUser(t, repo)
	require.NotZero(t, u.ID)

	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	got, err = repo.GetUserByEmail(ctx, "  "+u.Email+" ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetUserByID(ctx, 999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.GetUserByFirebaseUID(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	dup := &models.User{Name: "Someone Else", Email: u.Email, Password: "x"}
	require.ErrorIs(t, repo.CreateUser(ctx, dup), apperrors.ErrEmailTaken)
}

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresUserRepository(setupTestDB(t))
	require.NoError(t, repo.CreateUser(ctx, &models.User{Name: "Ada Lovelace", Email: "ada@example.com", Password: "x"}))
	require.NoError(t, repo.CreateUser(ctx, &models.User{Name: "Alan Turing", Email: "alan@example.com", Password: "x"}))

	found, err := repo.SearchUsers(ctx, "LOVE", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ada Lovelace", found[0].Name)

	found, err = repo.SearchUsers(ctx, "example.com", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestFriendshipRepositoryEdges(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewPostgresUserRepository(db)
	repo := NewPostgresFriendshipRepository(db)
	a, b := createUser(t, users), createUser(t, users)

	require.NoError(t, repo.InsertEdge(ctx, a.ID, b.ID))
	require.NoError(t, repo.InsertEdge(ctx, b.ID, a.ID))

	edges, err := repo.ListEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	friends, err := repo.GetUserFriends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b.ID, friends[0].ID)

	require.NoError(t, repo.DeleteEdge(ctx, b.ID, a.ID))
	require.NoError(t, repo.DeleteEdge(ctx, b.ID, a.ID))
	edges, err = repo.ListEdges(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestNotificationRepositoryAccept(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	now := time.Now().UTC()

	forward := &models.Notification{ID: "01J00000000000000000000001", Type: models.NotificationFriendRequest, SenderID: 1, RecipientID: 2, Status: models.StatusPending, CreatedAt: now}
	reverse := &models.Notification{ID: "01J00000000000000000000002", Type: models.NotificationFriendRequest, SenderID: 2, RecipientID: 1, Status: models.StatusPending, CreatedAt: now}
	other := &models.Notification{ID: "01J00000000000000000000003", Type: models.NotificationEventCancelled, RecipientID: 2, TargetID: "ev-1", Status: models.StatusPending, CreatedAt: now}
	for _, n := range []*models.Notification{forward, reverse, other} {
		require.NoError(t, repo.CreateNotification(ctx, n))
	}

	require.NoError(t, repo.AcceptFriendRequest(ctx, forward.ID, reverse.ID, 1, 2, now))
	// replay after a crash between commit and in-memory update
	require.NoError(t, repo.AcceptFriendRequest(ctx, forward.ID, reverse.ID, 1, 2, now))

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, other.ID, pending[0].ID)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", reverse.ID).Error)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)

	var count int64
	require.NoError(t, db.Model(&models.FriendEdge{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.SetStatus(ctx, other.ID, models.StatusDismissed, now))
	pending, err = repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// TestLeavesSurviveRestart drives the graph and ledger through the gorm
// stores and rebuilds them from the database.
func TestLeavesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	edges := NewPostgresFriendshipRepository(db)
	notes := NewPostgresNotificationRepository(db)

	g := graph.New(edges)
	l := ledger.New(notes, g)
	accepted, err := l.CreateRequest(ctx, 1, 2)
	require.NoError(t, err)
	open, err := l.CreateRequest(ctx, 3, 2)
	require.NoError(t, err)
	_, err = l.Resolve(ctx, accepted.ID, 2, models.OutcomeAccept)
	require.NoError(t, err)

	g2 := graph.New(edges)
	l2 := ledger.New(notes, g2)
	require.NoError(t, g2.Load(ctx))
	require.NoError(t, l2.Load(ctx))

	assert.True(t, g2.AreFriends(2, 1))
	pending := l2.ListPendingFor(2)
	require.Len(t, pending, 1)
	assert.Equal(t, open.ID, pending[0].ID)

	_, err = l2.Resolve(ctx, accepted.ID, 2, models.OutcomeAccept)
	require.ErrorIs(t, err, apperrors.ErrAlreadyResolved)
	_, err = l2.Resolve(ctx, accepted.ID, 3, models.OutcomeReject)
	require.ErrorIs(t, err, apperrors.ErrAuthorization)
	_, err = l2.Resolve(ctx, "01J0000000000000000000000Z", 2, models.OutcomeAccept)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

// TestResolveCommitsAfterCallerCancels drives accept and reject through the
// gorm stores with a context that is already cancelled.
func TestResolveCommitsAfterCallerCancels(t *testing.T) {
	db := setupTestDB(t)
	notes := NewPostgresNotificationRepository(db)
	g := graph.New(NewPostgresFriendshipRepository(db))
	l := ledger.New(notes, g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	accepted, err := l.CreateRequest(ctx, 1, 2)
	require.NoError(t, err)
	rejected, err := l.CreateRequest(ctx, 3, 2)
	require.NoError(t, err)

	_, err = l.Resolve(ctx, accepted.ID, 2, models.OutcomeAccept)
	require.NoError(t, err)
	_, err = l.Resolve(ctx, rejected.ID, 2, models.OutcomeReject)
	require.NoError(t, err)

	assert.True(t, g.AreFriends(1, 2))
	assert.Empty(t, l.ListPendingFor(2))

	pending, err := notes.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
	stored, err := notes.GetNotification(context.Background(), rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)

	edges, err := NewPostgresFriendshipRepository(db).ListEdges(context.Background())
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}
