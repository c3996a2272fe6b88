package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/config"
	"argus/internal/logger"
	"argus/pkg/models"
)

func TestContentAddressDeterministic(t *testing.T) {
	first := ContentAddress([]byte("same bytes"), ".jpg")
	second := ContentAddress([]byte("same bytes"), ".jpg")
	other := ContentAddress([]byte("different bytes"), ".jpg")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.True(t, strings.HasPrefix(first, "media/"))
	assert.True(t, strings.HasSuffix(first, ".jpg"))
}

func TestMemoryStoreChargedOncePerContent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Put(ctx, []byte("attachment"), ".png")
	require.NoError(t, err)
	second, err := store.Put(ctx, []byte("attachment"), ".png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Writes())

	exists, err := store.Exists(ctx, first)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "media/00/00/missing.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFetcherDownloadsWithExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(config.MediaConfig{FetchTimeout: time.Second, MaxBytes: 1024})
	data, ext, err := fetcher.Fetch(context.Background(), srv.URL+"/photos/front.jpg")
	require.NoError(t, err)

	assert.Equal(t, []byte("image-bytes"), data)
	assert.Equal(t, ".jpg", ext)
}

func TestFetcherEnforcesSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(config.MediaConfig{FetchTimeout: time.Second, MaxBytes: 1024})
	_, _, err := fetcher.Fetch(context.Background(), srv.URL+"/big.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size cap")
}

func TestFetcherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(config.MediaConfig{FetchTimeout: time.Second, MaxBytes: 1024})
	_, _, err := fetcher.Fetch(context.Background(), srv.URL+"/gone.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
}

func TestResolveExtFallsBackToContentType(t *testing.T) {
	assert.Equal(t, ".jpg", resolveExt("https://cdn.example.com/a/b.jpg", ""))

	ext := resolveExt("https://cdn.example.com/blob", "image/png")
	assert.Equal(t, ".png", ext)

	assert.Equal(t, "", resolveExt("https://cdn.example.com/blob", ""))
}

func TestPipelineCollectsAddressesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	store := NewMemoryStore()
	pipeline := NewPipeline(
		NewFetcher(config.MediaConfig{FetchTimeout: time.Second, MaxBytes: 1024}),
		store,
		logger.NopLogger(),
	)

	msg := &models.MessageEnvelope{
		SourceID:  "ch1",
		MessageID: 42,
		MediaRefs: []string{srv.URL + "/first.jpg", srv.URL + "/second.jpg", srv.URL + "/first.jpg"},
	}

	addresses, err := pipeline.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, addresses, 3)

	// The duplicated reference resolves to the duplicated address without a
	// second physical write.
	assert.Equal(t, addresses[0], addresses[2])
	assert.NotEqual(t, addresses[0], addresses[1])
	assert.Equal(t, 2, store.Writes())
}

func TestPipelineFailsAttemptOnFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	pipeline := NewPipeline(
		NewFetcher(config.MediaConfig{FetchTimeout: time.Second, MaxBytes: 1024}),
		NewMemoryStore(),
		logger.NopLogger(),
	)

	msg := &models.MessageEnvelope{
		SourceID:  "ch1",
		MessageID: 42,
		MediaRefs: []string{srv.URL + "/broken.jpg"},
	}

	addresses, err := pipeline.Process(context.Background(), msg)
	require.Error(t, err)
	assert.Nil(t, addresses)
}

func TestPipelineNoRefsNoWork(t *testing.T) {
	pipeline := NewPipeline(
		NewFetcher(config.MediaConfig{}),
		NewMemoryStore(),
		logger.NopLogger(),
	)

	addresses, err := pipeline.Process(context.Background(), &models.MessageEnvelope{SourceID: "ch1", MessageID: 42})
	require.NoError(t, err)
	assert.Nil(t, addresses)
	// Empty envelopes never touch the store.
}
