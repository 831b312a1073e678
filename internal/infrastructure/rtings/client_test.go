package rtings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `{"data":{"products":[
	{"id":101,"fullname":"Razer Viper Mini"},
	{"id":102,"fullname":" Logitech G305 Lightspeed "}
]}}`

const ratingsJSON = `{"data":{"ratings":[
	{"product_id":101,"original_id":8876,"score":8.1,"unblurred":true},
	{"product_id":101,"original_id":8878,"score":8.6,"unblurred":false},
	{"product_id":102,"original_id":8876,"score":7.9,"unblurred":true}
]}}`

func testConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		SessionCookie:     "session=abc123",
		RequestsPerMinute: 6000,
		MaxRetries:        2,
		Silos: map[string]Silo{
			"mouse": {Name: "mouse", Usages: []string{"8876", "8878"}},
			"audio": {Name: "headphones", Usages: []string{"17"}},
		},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://example.com/"}, zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "https://example.com", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 3, client.maxRetries)
	assert.Equal(t, "ratingsync/1.0", client.userAgent)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := NewClient(ClientConfig{}, zerolog.Nop())

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestFetchCategory_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session=abc123", r.Header.Get("Cookie"))
		assert.Equal(t, "mouse", r.URL.Query().Get("silo"))
		assert.Equal(t, "recent", r.URL.Query().Get("test_bench"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case productsListPath:
			assert.Empty(t, r.URL.Query().Get("usages"))
			w.Write([]byte(productsJSON))
		case ratingsPath:
			assert.Equal(t, "8876,8878", r.URL.Query().Get("usages"))
			w.Write([]byte(ratingsJSON))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	snapshot, err := client.FetchCategory(context.Background(), "mouse")

	require.NoError(t, err)
	assert.Equal(t, "mouse", snapshot.Category)
	assert.Equal(t, []domain.RawExternalProduct{
		{ExternalID: "101", FullName: "Razer Viper Mini"},
		{ExternalID: "102", FullName: "Logitech G305 Lightspeed"},
	}, snapshot.Products)
	require.Len(t, snapshot.Ratings, 3)
	assert.Equal(t, domain.RawRating{ExternalID: "101", AttributeCode: "8876", Score: 8.1, Visible: true}, snapshot.Ratings[0])
	assert.False(t, snapshot.Ratings[1].Visible)
}

func TestFetchCategory_UsesSiloName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "headphones", r.URL.Query().Get("silo"))
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	snapshot, err := client.FetchCategory(context.Background(), "audio")

	require.NoError(t, err)
	assert.True(t, snapshot.Empty())
}

func TestFetchCategory_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	snapshot, err := client.FetchCategory(context.Background(), "mouse")

	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestFetchCategory_UnauthorizedIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	_, err := client.FetchCategory(context.Background(), "mouse")

	assert.ErrorIs(t, err, domain.ErrSourceAPIFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchCategory_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case productsListPath:
			w.Write([]byte(productsJSON))
		case ratingsPath:
			w.Write([]byte(ratingsJSON))
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	snapshot, err := client.FetchCategory(context.Background(), "mouse")

	require.NoError(t, err)
	assert.Len(t, snapshot.Products, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchCategory_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	_, err := client.FetchCategory(context.Background(), "mouse")

	assert.ErrorIs(t, err, domain.ErrSourceAPIFailure)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchCategory_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	_, err := client.FetchCategory(context.Background(), "mouse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestFetchCategory_UnknownCategory(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:0"), zerolog.Nop())

	_, err := client.FetchCategory(context.Background(), "toaster")

	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestFetchCategory_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchCategory(ctx, "mouse")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchColumnOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, columnOptionsPath, r.URL.Path)
		w.Write([]byte(`{"data":{"silo":{"test_bench":{"usages":[
			{"original_id":8876,"name":"Work"},
			{"original_id":9999,"name":"Travel"}
		]}}}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())

	options, err := client.FetchColumnOptions(context.Background(), "mouse")

	require.NoError(t, err)
	assert.Equal(t, []domain.ColumnOption{
		{Code: "8876", Name: "Work"},
		{Code: "9999", Name: "Travel"},
	}, options)
}
