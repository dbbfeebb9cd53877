package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrice = `<span class="a-price-whole">19</span><span class="a-price-fraction">99</span>`

// failingTransport fails every round trip and records when each one happened.
type failingTransport struct {
	mu    sync.Mutex
	times []time.Time
}

func (f *failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.times = append(f.times, time.Now())
	return nil, errors.New("connection reset by peer")
}

func newTestScraper(attempts int, backoff time.Duration) *Scraper {
	return NewScraper(Config{
		MaxAttempts: attempts,
		Backoff:     backoff,
		Timeout:     5 * time.Second,
	}, nil)
}

func TestScraperReadPrice(t *testing.T) {
	var userAgent, acceptLanguage string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		acceptLanguage = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html")
		w.Write(productPage(testPrice))
	}))
	defer ts.Close()

	s := newTestScraper(3, 10*time.Millisecond)
	reading := s.ReadPrice(context.Background(), ts.URL+"/dp/B000000001")

	require.True(t, reading.Available(), "%v", reading.Err)
	assert.Equal(t, "19.99", reading.Price.StringFixed(2))
	assert.Equal(t, DefaultUserAgent, userAgent)
	assert.Equal(t, DefaultAcceptLanguage, acceptLanguage)

	assert.Equal(t, "Acme Noise Cancelling Headphones", s.ReadName(context.Background(), ts.URL))
}

func TestScraperExhaustsAttemptsOnNetworkError(t *testing.T) {
	const backoff = 30 * time.Millisecond
	transport := &failingTransport{}

	s := newTestScraper(3, backoff)
	s.WithTransport(transport)

	body, err := s.Fetch(context.Background(), "http://shop.invalid/dp/B000000001")
	require.Error(t, err)
	assert.Nil(t, body)

	var ferr *FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 3, ferr.Attempts)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.times, 3)
	for i := 1; i < len(transport.times); i++ {
		assert.GreaterOrEqual(t, transport.times[i].Sub(transport.times[i-1]), backoff)
	}
}

func TestScraperRetriesNon2xx(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(productPage(testPrice))
	}))
	defer ts.Close()

	s := newTestScraper(3, 5*time.Millisecond)
	reading := s.ReadPrice(context.Background(), ts.URL)

	require.True(t, reading.Available(), "%v", reading.Err)
	assert.Equal(t, "19.99", reading.Price.StringFixed(2))
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestScraperAcceptsAny2xx(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNonAuthoritativeInfo, http.StatusPartialContent} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(status)
				w.Write(productPage(testPrice))
			}))
			defer ts.Close()

			s := newTestScraper(3, 5*time.Millisecond)
			reading := s.ReadPrice(context.Background(), ts.URL)

			require.True(t, reading.Available(), "%v", reading.Err)
			assert.Equal(t, "19.99", reading.Price.StringFixed(2))
			assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
		})
	}
}

func TestScraperNon2xxExhaustsBudget(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	s := newTestScraper(2, 5*time.Millisecond)
	reading := s.ReadPrice(context.Background(), ts.URL)

	require.False(t, reading.Available())
	var uerr *UnavailableError
	require.True(t, errors.As(reading.Err, &uerr))
	assert.Equal(t, ReasonNetwork, uerr.Reason)
	assert.Contains(t, uerr.Error(), "status 404")
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestScraperMissingMarkupDoesNotRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`<html><body>Robot check</body></html>`))
	}))
	defer ts.Close()

	s := newTestScraper(3, 5*time.Millisecond)
	reading := s.ReadPrice(context.Background(), ts.URL)

	require.False(t, reading.Available())
	var uerr *UnavailableError
	require.True(t, errors.As(reading.Err, &uerr))
	assert.Equal(t, ReasonNotFound, uerr.Reason)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestScraperReadNameDegrades(t *testing.T) {
	s := newTestScraper(2, time.Millisecond)
	s.WithTransport(&failingTransport{})

	assert.Equal(t, UnknownProductName, s.ReadName(context.Background(), "http://shop.invalid/dp/B000000001"))
}

func TestScraperStopsOnCancelledContext(t *testing.T) {
	transport := &failingTransport{}
	s := newTestScraper(5, time.Hour)
	s.WithTransport(transport)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Fetch(ctx, "http://shop.invalid/dp/B000000001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Len(t, transport.times, 1)
}
