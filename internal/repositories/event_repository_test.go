package repositories

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	mongoOnce    sync.Once
	mongoInitErr error
	mongoURI     string
)

const mongoContainerName = "gatherly-repositories-mongo"

// mongoURIFor returns MONGO_URI when set and otherwise starts a shared
// container for the package.
func mongoURIFor(t *testing.T) string {
	t.Helper()
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	mongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		_ = os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

		container, err := mongodb.Run(ctx, "mongo:7",
			testcontainers.WithReuseByName(mongoContainerName),
		)
		if err != nil {
			mongoInitErr = err
			return
		}
		mongoURI, mongoInitErr = container.ConnectionString(ctx)
	})
	require.NoError(t, mongoInitErr)
	return mongoURI
}

func setupMongo(t *testing.T) *MongoEventRepository {
	t.Helper()
	uri := mongoURIFor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("gatherly_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	repo := NewMongoEventRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoEventMembership(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Millisecond)
	ev := &models.Event{
		ID:        uuid.NewString(),
		OwnerID:   1,
		Category:  "music",
		Title:     "Open mic",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		MaxPeople: 1,
		CreatedAt: start,
	}
	require.NoError(t, repo.InsertEvent(ctx, ev))

	require.NoError(t, repo.AddMember(ctx, ev.ID, 7))
	require.ErrorIs(t, repo.AddMember(ctx, ev.ID, 8), ErrEventDiverged)
	require.ErrorIs(t, repo.AddMember(ctx, ev.ID, 7), ErrEventDiverged)

	events, err := repo.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []uint{7}, events[0].Members)
	assert.Equal(t, 1, events[0].CurrentCount)

	require.NoError(t, repo.RemoveMember(ctx, ev.ID, 7))
	require.ErrorIs(t, repo.RemoveMember(ctx, ev.ID, 7), ErrEventDiverged)

	require.NoError(t, repo.DeleteEvent(ctx, ev.ID))
	events, err = repo.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMongoAddMemberHoldsCapacityUnderContention(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Millisecond)
	ev := &models.Event{
		ID:        uuid.NewString(),
		OwnerID:   1,
		Category:  "sports",
		Title:     "Pickup game",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		MaxPeople: 3,
		CreatedAt: start,
	}
	require.NoError(t, repo.InsertEvent(ctx, ev))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for user := uint(10); user < 20; user++ {
		wg.Add(1)
		go func(user uint) {
			defer wg.Done()
			if err := repo.AddMember(ctx, ev.ID, user); err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}(user)
	}
	wg.Wait()

	assert.Equal(t, 3, joined)
	events, err := repo.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Len(t, events[0].Members, 3)
	assert.Equal(t, 3, events[0].CurrentCount)
}
