package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatrelay/internal/core"
)

type recordedRequest struct {
	Method string
	Query  string
	APIKey string
	Body   string
}

type fakeBase44 struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (f *fakeBase44) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Query:  r.URL.Query().Get("filter"),
		APIKey: r.Header.Get("api_key"),
		Body:   string(body),
	})
	f.mu.Unlock()
	f.handler(w, r)
}

func newBase44(t *testing.T, h http.HandlerFunc) (*Base44Client, *fakeBase44) {
	t.Helper()
	fake := &fakeBase44{handler: h}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewBase44Client(srv.URL+"/entities/Chat/", "test-key", 2*time.Second), fake
}

func TestBase44_FetchAll(t *testing.T) {
	client, fake := newBase44(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entities/Chat", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"id":"1","username":"alice","message":"hi","createdAt":"2026-10-15T10:00:00Z"},
			{"id":"2","username":"bob","message":"yo","created_date":"2026-10-15T10:01:02.123456"},
			{"id":"3","username":"carol","message":"no date"}
		]`)
	})

	msgs, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "alice", msgs[0].Username)
	assert.Equal(t, "hi", msgs[0].Message)
	assert.Equal(t, time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), msgs[0].CreatedAt)
	assert.Equal(t, time.Date(2026, 10, 15, 10, 1, 2, 123456000, time.UTC), msgs[1].CreatedAt)
	assert.True(t, msgs[2].CreatedAt.IsZero())

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodGet, fake.requests[0].Method)
	assert.Equal(t, "test-key", fake.requests[0].APIKey)
}

func TestBase44_Append(t *testing.T) {
	client, fake := newBase44(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"42","username":"alice","message":"hello","created_date":"2026-10-15T10:00:00"}`)
	})

	msg, err := client.Append(context.Background(), "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), msg.CreatedAt)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPost, fake.requests[0].Method)
	var sent map[string]string
	require.NoError(t, json.Unmarshal([]byte(fake.requests[0].Body), &sent))
	assert.Equal(t, map[string]string{"username": "alice", "message": "hello"}, sent)
}

func TestBase44_IsUsernameTaken(t *testing.T) {
	client, fake := newBase44(t, func(w http.ResponseWriter, r *http.Request) {
		var filter [][]string
		if !assert.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("filter")), &filter)) {
			return
		}
		if filter[0][2] == "alice" {
			_, _ = io.WriteString(w, `[{"id":"1","username":"alice","message":"hi"}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	taken, err := client.IsUsernameTaken(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = client.IsUsernameTaken(context.Background(), `bob", "x`)
	require.NoError(t, err)
	assert.False(t, taken)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, `[["username","is","alice"]]`, fake.requests[0].Query)
	assert.Equal(t, `[["username","is","bob\", \"x"]]`, fake.requests[1].Query)
}

func TestBase44_ErrorsMapToStoreUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusInternalServerError)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad key", http.StatusUnauthorized)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `not json`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newBase44(t, tt.handler)
			ctx := context.Background()

			_, err := client.FetchAll(ctx)
			assert.ErrorIs(t, err, core.ErrStoreUnavailable)
			_, err = client.Append(ctx, "alice", "hi")
			assert.ErrorIs(t, err, core.ErrStoreUnavailable)
			_, err = client.IsUsernameTaken(ctx, "alice")
			assert.ErrorIs(t, err, core.ErrStoreUnavailable)
		})
	}
}

func TestBase44_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewBase44Client(url, "k", time.Second)
	_, err := client.FetchAll(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.NoError(t, client.Close())
}

func TestBase44_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	client, _ := newBase44(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.FetchAll(ctx)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
