package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-editor/internal/events"
	"github.com/jwebster45206/world-editor/internal/storage"
)

type sseEvent struct {
	name string
	data string
}

func setupEvents(t *testing.T) (*events.Broadcaster, *httptest.Server) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := events.NewBroadcaster(client, testLogger())
	srv := httptest.NewServer(NewEventsHandler(b, testLogger()))
	t.Cleanup(srv.Close)
	return b, srv
}

// openStream connects and returns a channel of parsed events.
func openStream(t *testing.T, url string) <-chan sseEvent {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	out := make(chan sseEvent, 16)
	go func() {
		defer func() { _ = resp.Body.Close() }()
		defer close(out)
		var cur sseEvent
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				cur.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				cur.data = strings.TrimPrefix(line, "data: ")
			case line == "" && cur.name != "":
				out <- cur
				cur = sseEvent{}
			}
		}
	}()
	return out
}

func next(t *testing.T, stream <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case e, ok := <-stream:
		require.True(t, ok, "stream closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func TestEventsHandler_StreamsEvents(t *testing.T) {
	b, srv := setupEvents(t)
	stream := openStream(t, srv.URL+"/v1/events")

	assert.Equal(t, "connected", next(t, stream).name)

	require.NoError(t, b.PublishWorldSaved(context.Background(), "harbor", 4, 1))
	e := next(t, stream)
	assert.Equal(t, "world.saved", e.name)

	var payload events.Event
	require.NoError(t, json.Unmarshal([]byte(e.data), &payload))
	assert.Equal(t, "harbor", payload.World)
	assert.EqualValues(t, 4, payload.Data["entities"])
}

func TestEventsHandler_WorldFilter(t *testing.T) {
	b, srv := setupEvents(t)
	stream := openStream(t, srv.URL+"/v1/events?world=harbor")
	require.Equal(t, "connected", next(t, stream).name)

	ctx := context.Background()
	require.NoError(t, b.PublishWorldSaved(ctx, "elsewhere", 1, 0))
	require.NoError(t, b.PublishSyncQueued(ctx, "harbor", "job-7"))

	e := next(t, stream)
	assert.Equal(t, "graph.sync_queued", e.name)
	assert.Contains(t, e.data, `"job_id":"job-7"`)
}

func TestEventsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewEventsHandler(nil, testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/events", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "Only GET")
}

type recordingPublisher struct {
	worlds []string
	err    error
}

func (p *recordingPublisher) PublishWorldSaved(_ context.Context, world string, _, _ int) error {
	p.worlds = append(p.worlds, world)
	return p.err
}

func TestWorldHandler_PublishesSaves(t *testing.T) {
	store := storage.NewMockStorage()
	pub := &recordingPublisher{}
	handler := NewWorldHandler(store, testLogger()).WithEvents(pub)

	body := `{"name":"w","entities":[],"relations":[]}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/v1/worlds/w.json", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"w"}, pub.worlds)

	// A rejected body is never announced.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/v1/worlds/w", strings.NewReader("[]")))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, pub.worlds, 1)

	// Publishing is best effort.
	pub.err = assert.AnError
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/v1/worlds/w", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
}
