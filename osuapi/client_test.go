package osuapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchBeatmap(t *testing.T) {
	t.Parallel()

	var gotAgent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent.Store(r.UserAgent())
		switch r.URL.Path {
		case "/osu/1":
			w.Write([]byte("osu file format v14\n"))
		case "/osu/2":
			w.WriteHeader(http.StatusNotFound)
		case "/osu/3":
			w.Write([]byte(slowDownBody))
		case "/osu/4":
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/", UserAgent: "osusync-test", RequestsPerMinute: 100})
	ctx := context.Background()

	body, err := c.FetchBeatmap(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "osu file format v14\n", string(body))
	require.Equal(t, "osusync-test", gotAgent.Load())

	_, err = c.FetchBeatmap(ctx, 2)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.FetchBeatmap(ctx, 3)
	require.ErrorIs(t, err, ErrRateLimited)

	_, err = c.FetchBeatmap(ctx, 4)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.FetchBeatmap(ctx, 5)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestThrottleWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	th := newThrottle(2, time.Minute, 1)
	th.now = func() time.Time { return now }

	require.Zero(t, th.reserve())
	require.Zero(t, th.reserve())
	wait := th.reserve()
	require.Greater(t, wait, 59*time.Second)

	now = now.Add(time.Minute + time.Second)
	require.Zero(t, th.reserve())
	require.Len(t, th.attempts, 2)
}

func TestThrottleHonoursContext(t *testing.T) {
	t.Parallel()

	th := newThrottle(1, time.Hour, 1)
	done, err := th.acquire(context.Background())
	require.NoError(t, err)
	done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = th.acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the slot was returned on cancellation
	require.Len(t, th.slots, 1)
}
