package retryhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(time.Second, 3, time.Millisecond)
	var out struct {
		OK bool `json:"ok"`
	}
	err := client.PostJSON(context.Background(), server.URL, map[string]string{"a": "b"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 1, calls)
}

func TestPostJSON_RetriesOn5xxThenSucceeds(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(time.Second, 3, time.Millisecond)
	err := client.PostJSON(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPostJSON_ExhaustedRetriesReturnUnreachable(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(time.Second, 3, time.Millisecond)
	err := client.PostJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnreachable(err))
	assert.Equal(t, 3, calls)

	var unreachable *UnreachableError
	require.True(t, errors.As(err, &unreachable))
	assert.Equal(t, 3, unreachable.Attempts)
}

func TestPostJSON_DoesNotRetryOn4xx(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(time.Second, 3, time.Millisecond)
	err := client.PostJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.False(t, IsUnreachable(err))
	assert.Equal(t, 1, calls)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusUnprocessableEntity, status.StatusCode)
}

func TestPostJSON_ConnectionErrorIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listens anymore

	client := NewClient(200*time.Millisecond, 2, time.Millisecond)
	err := client.PostJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnreachable(err))
}
