package analytics

import (
	"ShrtLink-Backend/internal/repository/memory"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type collectingSubmitter struct {
	mu     sync.Mutex
	clicks []*ClickData
}

func (c *collectingSubmitter) SubmitClick(data *ClickData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicks = append(c.clicks, data)
	return nil
}

func (c *collectingSubmitter) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clicks)
}

func startNATS(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping nats container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	return endpoint
}

func TestNATSQueueGroupDeliversEachClickOnce(t *testing.T) {
	url := startNATS(t)
	log := zap.NewNop()

	conn, err := Connect(url, log)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	// two instances in the same queue group share the stream
	first, second := &collectingSubmitter{}, &collectingSubmitter{}
	_, err = SubscribeClicks(conn.Conn, "clicks.test", "recorders", first, log)
	require.NoError(t, err)
	_, err = SubscribeClicks(conn.Conn, "clicks.test", "recorders", second, log)
	require.NoError(t, err)

	publisher := NewNATSPublisher(conn.Conn, "clicks.test", log)
	clickedAt := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, publisher.SubmitClick(&ClickData{
			LinkID:    int64(i + 1),
			ShortCode: "abc123",
			IPAddress: "203.0.113.7",
			ClickedAt: clickedAt,
		}))
	}
	require.NoError(t, conn.Flush())

	assert.Eventually(t, func() bool {
		return first.len()+second.len() == n
	}, 5*time.Second, 20*time.Millisecond)

	all := append(append([]*ClickData{}, first.clicks...), second.clicks...)
	seen := make(map[int64]bool, n)
	for _, c := range all {
		assert.False(t, seen[c.LinkID], "click %d delivered twice", c.LinkID)
		seen[c.LinkID] = true
		assert.True(t, clickedAt.Equal(c.ClickedAt))
	}
}

func TestSubscribeClicksSkipsMalformedMessages(t *testing.T) {
	url := startNATS(t)
	log := zap.NewNop()

	conn, err := Connect(url, log)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	sink := &collectingSubmitter{}
	_, err = SubscribeClicks(conn.Conn, "clicks.bad", "recorders", sink, log)
	require.NoError(t, err)

	require.NoError(t, conn.Publish("clicks.bad", []byte("not json")))
	require.NoError(t, NewNATSPublisher(conn.Conn, "clicks.bad", log).SubmitClick(&ClickData{LinkID: 9}))
	require.NoError(t, conn.Flush())

	assert.Eventually(t, func() bool { return sink.len() == 1 }, 5*time.Second, 20*time.Millisecond)
}

// slowSubmitter holds every delivery long enough for shutdown to overlap it.
type slowSubmitter struct {
	next  Submitter
	delay time.Duration
}

func (s slowSubmitter) SubmitClick(data *ClickData) error {
	time.Sleep(s.delay)
	return s.next.SubmitClick(data)
}

func TestDrainDeliversInFlightClicksBeforeProcessorStops(t *testing.T) {
	url := startNATS(t)
	log := zap.NewNop()

	store := memory.New()
	link := newLink(t, store, "drain1")
	p := NewProcessor(newRecorder(t, store, nil), log, testConfig())
	require.NoError(t, p.Start())

	conn, err := Connect(url, log)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	_, err = SubscribeClicks(conn.Conn, "clicks.drain", "recorders", slowSubmitter{next: p, delay: 20 * time.Millisecond}, log)
	require.NoError(t, err)

	publisher := NewNATSPublisher(conn.Conn, "clicks.drain", log)
	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, publisher.SubmitClick(&ClickData{LinkID: link.ID, IPAddress: "203.0.113.7"}))
	}
	require.NoError(t, conn.Flush())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, conn.Drain(ctx))
	assert.True(t, conn.IsClosed())

	require.NoError(t, p.Stop())

	got, err := store.GetLinkByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.TotalClicks)
	assert.Equal(t, int64(n), p.GetStats()["processed"])

	// a second drain on the closed connection returns at once
	require.NoError(t, conn.Drain(ctx))
}
