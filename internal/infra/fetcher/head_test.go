package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webintel/internal/infra/fetcher"
	"webintel/internal/infra/fetcher/fetchertest"
	"webintel/internal/usecase/scrape"
)

func TestHead_FollowsChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/a":
			http.Redirect(w, r, "/b", http.StatusMovedPermanently)
		case "/b":
			http.Redirect(w, r, "https://www.example.com/final?x=1", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	f, router := fetchertest.New(srv)

	res, err := f.Head(context.Background(), "https://sho.rt/a", 10, time.Second)

	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/final?x=1", res.FinalURL)
	assert.Equal(t, 2, res.Redirects)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"sho.rt", "sho.rt", "www.example.com"}, router.Hosts())
}

func TestHead_FallsBackToGET(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		http.Redirect(w, r, "https://example.com/landing", http.StatusFound)
	}))
	defer srv.Close()

	f, _ := fetchertest.New(srv)

	res, err := f.Head(context.Background(), "https://sho.rt/x", 1, time.Second)

	require.Error(t, err, "second hop also answers with a redirect, exceeding the limit of 1")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, scrape.ErrTooManyRedirects)
	assert.Equal(t, []string{"HEAD", "GET", "HEAD", "GET"}, methods)
}

func TestHead_RedirectToPrivateAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://192.168.0.10/router", http.StatusFound)
	}))
	defer srv.Close()

	f, router := fetchertest.New(srv)

	_, err := f.Head(context.Background(), "https://bit.ly/abc", 10, time.Second)

	requireFetchError(t, err, fetcher.KindSSRFBlocked)
	assert.ErrorIs(t, err, scrape.ErrSSRFBlocked)
	assert.Equal(t, []string{"bit.ly"}, router.Hosts())
}

func TestHead_NoRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f, _ := fetchertest.New(srv)

	res, err := f.Head(context.Background(), "https://example.com/page", 10, 0)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", res.FinalURL)
	assert.Zero(t, res.Redirects)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}
