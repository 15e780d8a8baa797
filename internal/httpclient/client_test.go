package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	var ua, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<rss/>"))
	}))
	defer srv.Close()

	c := New(0)
	assert.Equal(t, DefaultTimeout, c.GetTimeout())

	b, err := c.Fetch(context.Background(), srv.URL+"/feed", map[string]string{"Accept": "application/rss+xml"})
	require.NoError(t, err)
	assert.Equal(t, "<rss/>", string(b))
	assert.Equal(t, DefaultUserAgent, ua)
	assert.Equal(t, "application/rss+xml", accept)

	_, err = c.Fetch(context.Background(), srv.URL+"/missing", nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestFetchTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-done
	}))
	defer func() {
		close(done)
		srv.Close()
	}()

	c := New(50 * time.Millisecond)
	_, err := c.Fetch(context.Background(), srv.URL, nil)
	require.Error(t, err)
}
