package captions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("videoId"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"transcript":" wait for the sweep ","videoTitle":"SMC Basics","isAutoGenerated":true}`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL, "secret", "en", time.Second)
	got, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "wait for the sweep", got.Text)
	assert.Equal(t, "SMC Basics", got.VideoTitle)
	assert.True(t, got.IsAutoGenerated)
}

func TestHTTPFetcher_JoinsSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"segments":[{"text":"first"},{"text":" "},{"text":"second"}]}`))
	}))
	defer server.Close()

	got, err := NewHTTPFetcher(server.URL, "", "", time.Second).Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "first second", got.Text)
	assert.False(t, got.IsAutoGenerated)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"captions disabled"}`))
	}))
	defer notFound.Close()
	_, err := NewHTTPFetcher(notFound.URL, "", "", time.Second).Fetch(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNoCaptions)

	structured := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"video is private","code":"PRIVATE"}`))
	}))
	defer structured.Close()
	_, err = NewHTTPFetcher(structured.URL, "", "", time.Second).Fetch(context.Background(), "abc")
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "PRIVATE", se.Code)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transcript":""}`))
	}))
	defer empty.Close()
	_, err = NewHTTPFetcher(empty.URL, "", "", time.Second).Fetch(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNoCaptions)
}
