//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/scholars-client/internal/testutil"
	"github.com/Sternrassler/scholars-client/pkg/client"
	"github.com/Sternrassler/scholars-client/pkg/graph"
	"github.com/Sternrassler/scholars-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start Redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

func newClient(t *testing.T, mock *testutil.MockScholar, rdb *redis.Client) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("scholars-integration/1.0 (integration@test.org)")
	cfg.BaseURL = mock.URL()
	cfg.Redis = rdb
	cfg.RateLimit = 0
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 2,
	}

	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// TestSearchServedFromCache walks a search twice; the second walk never
// reaches the API.
func TestSearchServedFromCache(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("paper/search", testutil.PaperCorpus(230), testutil.CorpusOptions{Search: true})

	c := newClient(t, mock, rdb)
	ctx := context.Background()

	params, err := graph.NewPaperSearchParams("knowledge graphs", pagination.DefaultPage(), graph.FieldTitle)
	require.NoError(t, err)
	search := graph.GetPaperSearch(params)

	first, err := pagination.Collect(ctx, search.Paged(c, pagination.All()))
	require.NoError(t, err)
	require.Len(t, first, 230)
	assert.Equal(t, 3, mock.GetRequestCount())

	second, err := pagination.Collect(ctx, search.Paged(c, pagination.All()))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, mock.GetRequestCount(), "second walk should be served from Redis")
}

// TestCooldownSharedAcrossClients checks that a 429 seen by one client
// is retried through, and that a cooldown started by one client delays
// another client sharing the same Redis.
func TestCooldownSharedAcrossClients(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetSequence("author/a1",
		testutil.NewRateLimitResponse("1"),
		testutil.NewJSONResponse(`{"authorId":"a1","name":"Ada"}`),
	)
	mock.SetResponse("author/a2", testutil.NewJSONResponse(`{"authorId":"a2","name":"Grace"}`))

	first := newClient(t, mock, rdb)
	second := newClient(t, mock, rdb)
	ctx := context.Background()

	author, err := graph.GetAuthor("a1", nil).Query(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Ada", author.Name)
	assert.Len(t, mock.RequestsTo("author/a1"), 2)

	require.NoError(t, first.Cooldown().Start(ctx, 500*time.Millisecond))

	state, err := second.Cooldown().GetState(ctx)
	require.NoError(t, err)
	assert.True(t, state.Active(), "cooldown should be visible through Redis")

	start := time.Now()
	author, err = graph.GetAuthor("a2", nil).Query(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "Grace", author.Name)
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

// TestFanOutWithCache drains several author listings concurrently
// against a shared cache.
func TestFanOutWithCache(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("author/a1/papers", testutil.PaperCorpus(150), testutil.CorpusOptions{})
	mock.SetCorpus("author/a2/papers", testutil.PaperCorpus(40), testutil.CorpusOptions{})

	c := newClient(t, mock, rdb)
	ctx := context.Background()

	jobs := func() []pagination.Job[graph.PaperWithLinks] {
		var out []pagination.Job[graph.PaperWithLinks]
		for _, id := range []string{"a1", "a2", "a3"} {
			out = append(out, pagination.Job[graph.PaperWithLinks]{
				Key:      id,
				Iterator: graph.GetAuthorPapers(id, nil).Paged(c, pagination.Limit(120)),
			})
		}
		return out
	}

	results := pagination.FanOut(ctx, pagination.DefaultFanOutConfig(), jobs())
	require.Len(t, results, 3)
	assert.Len(t, results[0].Items, 120)
	assert.Len(t, results[1].Items, 40)
	require.Error(t, results[2].Err)

	var respErr *client.ResponseError
	require.ErrorAs(t, results[2].Err, &respErr)
	assert.True(t, respErr.NotFound())

	requests := mock.GetRequestCount()
	again := pagination.FanOut(ctx, pagination.DefaultFanOutConfig(), jobs())
	assert.Len(t, again[0].Items, 120)
	// Only the failing listing goes back to the API.
	assert.Equal(t, requests+1, mock.GetRequestCount())
}
