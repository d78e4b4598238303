package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: serve a fixed HTML body with the given status code
func serveHTML(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestGet_NotFoundReturnsErrorMap verifies 404 folds into the sentinel map
func TestGet_NotFoundReturnsErrorMap(t *testing.T) {
	srv := serveHTML(t, http.StatusNotFound, "<html><body>gone</body></html>")

	s := New(srv.URL, []SearchTerms{
		NewSearchTerms(NewHtmlSearchTarget("title", "id", "title", ""), false),
	})

	result := AsMap(s.Get(context.Background()))

	assert.Equal(t, map[string][]string{
		"ERROR": {"HTTP request error. Please check your internet connection and try again"},
	}, result)
}

// TestGet_StatusErrorIsTyped verifies status failures carry kind and code
func TestGet_StatusErrorIsTyped(t *testing.T) {
	srv := serveHTML(t, http.StatusServiceUnavailable, "")

	fields, err := New(srv.URL, nil).Get(context.Background())
	require.Error(t, err)
	assert.Nil(t, fields)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ErrorKindStatus, fetchErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.Equal(t, ErrorMessage, fetchErr.UserMessage())
}

// TestGet_TransportFailure verifies connection errors become FetchErrors
func TestGet_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	fields, err := New(addr, nil).Get(context.Background())
	require.Error(t, err)
	assert.Nil(t, fields)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ErrorKindTransport, fetchErr.Kind)
	assert.Equal(t, map[string][]string{ErrorKey: {ErrorMessage}}, AsMap(fields, err))
}

// TestGet_InvalidURL verifies unsupported URLs fail before any request
func TestGet_InvalidURL(t *testing.T) {
	_, err := New("ftp://example.com/recipe", nil).Get(context.Background())

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ErrorKindRequest, fetchErr.Kind)
}

// TestGet_Timeout verifies the configured timeout bounds the fetch
func TestGet_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, nil, WithTimeout(50*time.Millisecond)).Get(context.Background())

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ErrorKindTransport, fetchErr.Kind)
}

// TestGet_TextContentByID verifies text extraction of an element by id
func TestGet_TextContentByID(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body><h1 id="title">Soup</h1></body></html>`)

	s := New(srv.URL, []SearchTerms{
		NewSearchTerms(NewHtmlSearchTarget("title", "id", "title", ""), false),
	})

	fields, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"title": {"Soup"}}, fields.Map())
	assert.Equal(t, map[string][]string{"title": {"Soup"}}, AsMap(fields, err))
}

// TestGet_MultipleAttributeValues verifies attribute values in document order
func TestGet_MultipleAttributeValues(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `
	<html>
		<body>
			<img class="photo" src="a.jpg">
			<img class="photo" src="b.jpg">
		</body>
	</html>
	`)

	s := New(srv.URL, []SearchTerms{
		NewSearchTerms(NewHtmlSearchTarget("photos", "class", "photo", "src"), true),
	})

	fields, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"photos": {"a.jpg", "b.jpg"}}, fields.Map())
}

// TestGet_SendsConfiguredHeaders verifies headers reach the server
func TestGet_SendsConfiguredHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, "<html></html>")
	}))
	t.Cleanup(srv.Close)

	headers := map[string]string{
		"User-Agent":      "test-agent",
		"Referer":         "https://www.duckduckgo.com/",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
	}

	_, err := New(srv.URL, nil, WithHeaders(headers)).Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-agent", got.Get("User-Agent"))
	assert.Equal(t, "https://www.duckduckgo.com/", got.Get("Referer"))
	assert.Equal(t, "en-US,en;q=0.5", got.Get("Accept-Language"))
	assert.NotEqual(t, "gzip, deflate, br", got.Get("Accept-Encoding"), "transport should negotiate encoding")
}

// TestGet_DecodesDeclaredCharset verifies non-UTF-8 bodies are decoded
func TestGet_DecodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><body><h1 id=\"title\">Caf\xe9</h1></body></html>"))
	}))
	t.Cleanup(srv.Close)

	s := New(srv.URL, []SearchTerms{
		NewSearchTerms(NewHtmlSearchTarget("title", "id", "title", ""), false),
	})

	fields, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Café", fields.First("title"))
}

// TestGet_ConcurrentCallsOnOneInstance verifies a scraper can be shared
func TestGet_ConcurrentCallsOnOneInstance(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body><h1 id="title">Soup</h1></body></html>`)

	s := New(srv.URL, []SearchTerms{
		NewSearchTerms(NewHtmlSearchTarget("title", "id", "title", ""), false),
	})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fields, err := s.Get(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if fields.First("title") != "Soup" {
				errs <- fmt.Errorf("unexpected title %q", fields.First("title"))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

// TestNew_CopiesTerms verifies caller mutations do not leak into the scraper
func TestNew_CopiesTerms(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body><h1 id="title">Soup</h1></body></html>`)

	terms := []SearchTerms{
		NewSearchTerms(NewHtmlSearchTarget("title", "id", "title", ""), false),
	}
	s := New(srv.URL, terms)
	terms[0].Target.Name = "changed"

	fields, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, fields.Names())
	assert.Equal(t, srv.URL, s.URL())
}

// TestFetchError_Messages verifies error strings per kind
func TestFetchError_Messages(t *testing.T) {
	cause := errors.New("connection refused")

	assert.Equal(t, "status: HTTP 404 for http://x", newStatusError("http://x", 404).Error())
	assert.True(t, strings.Contains(newTransportError("http://x", cause).Error(), "connection refused"))
	assert.ErrorIs(t, newTransportError("http://x", cause), cause)
}
