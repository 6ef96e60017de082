package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-scout/internal/browser"
	"github.com/sells-group/menu-scout/internal/config"
)

func TestNewSearchProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"duckduckgo", "duckduckgo"},
		{"", "duckduckgo"},
		{"jina", "jina"},
		{"chain", "chain"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c := &config.Config{}
			c.Search.Provider = tt.provider
			c.Jina.Key = "test-key"

			p, err := newSearchProvider(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestNewSearchProvider_Unknown(t *testing.T) {
	c := &config.Config{}
	c.Search.Provider = "bing"

	_, err := newSearchProvider(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bing")
}

func TestNewSearchProvider_SendsBrowserUserAgent(t *testing.T) {
	tests := []struct {
		name   string
		agents []string
		want   string
	}{
		{"configured", []string{"Mozilla/5.0 Chrome/120", "Mozilla/5.0 Firefox/121"}, "Mozilla/5.0 Chrome/120"},
		{"default", nil, browser.DefaultUserAgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case got <- r.Header.Get("User-Agent"):
				default:
				}
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html><head><title>results</title></head><body></body></html>"))
			}))
			defer srv.Close()

			c := &config.Config{}
			c.Search.Provider = "duckduckgo"
			c.Search.BaseURL = srv.URL
			c.Browser.UserAgents = tt.agents

			p, err := newSearchProvider(c)
			require.NoError(t, err)
			_, _ = p.Search(context.Background(), "Pizza Hut, Colaba swiggy")

			select {
			case ua := <-got:
				assert.Equal(t, tt.want, ua)
			default:
				t.Fatal("search provider made no request")
			}
		})
	}
}
