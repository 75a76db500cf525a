package revalidate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestWebhook(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SecretHeader) != "s3cret" {
			http.Error(w, "bad secret", http.StatusUnauthorized)
			return
		}
		var body struct{ Path string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		got = append(got, body.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	require.NoError(t, NewWebhook(srv.URL, "s3cret", time.Second).Invalidate(ctx, "/about"))
	require.Equal(t, []string{"/about"}, got)

	err := NewWebhook(srv.URL, "wrong", time.Second).Invalidate(ctx, "/")
	require.ErrorContains(t, err, "status 401")
}

func TestMultiCallsAllAndJoinsErrors(t *testing.T) {
	a := &Recorder{Fail: map[string]bool{"/": true}}
	b := &Recorder{}
	err := Multi{a, b}.Invalidate(context.Background(), "/")
	require.Error(t, err)
	require.Empty(t, a.Paths())
	require.Equal(t, []string{"/"}, b.Paths())

	require.NoError(t, Multi{Nop{}, b}.Invalidate(context.Background(), "/faq"))
}

func TestPublisherAndSubscribe(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = Subscribe(ctx, client, "content:revalidate", func(ev Event) { events <- ev })
	}()
	<-ready

	pub := NewPublisher(client, "content:revalidate")
	// wait for the subscription before publishing
	require.Eventually(t, func() bool {
		return m.PubSubNumSub("content:revalidate")["content:revalidate"] > 0
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, pub.Invalidate(ctx, "/pricing"))

	select {
	case ev := <-events:
		require.Equal(t, "/pricing", ev.Path)
	case <-time.After(time.Second):
		t.Fatal("no revalidation event received")
	}
}
