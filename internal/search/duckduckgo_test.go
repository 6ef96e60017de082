package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgResults = `<!DOCTYPE html><html><head><title>pizza hut colaba swiggy at DuckDuckGo</title></head>
<body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.swiggy.com%2Frestaurants%2Fpizza-hut-colaba-mumbai-123456&amp;rut=abc">Pizza Hut,   Colaba | Swiggy</a>
</div>
<div class="result">
  <a class="result__a" href="https://www.swiggy.com/city/mumbai/pizza-hut-colaba-rest654321">Pizza Hut Colaba</a>
</div>
<div class="result">
  <a class="result__a" href="https://www.zomato.com/mumbai/pizza-hut-colaba">Pizza Hut - Zomato</a>
</div>
<a href="/feedback">Feedback</a>
</body></html>`

func TestDuckDuckGo_ParsesCatalogLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Pizza Hut, Colaba swiggy", r.URL.Query().Get("q"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(ddgResults))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(DuckDuckGoConfig{BaseURL: srv.URL + "/html/", UserAgent: "test-agent"})
	res, err := d.Search(context.Background(), "Pizza Hut, Colaba swiggy")
	require.NoError(t, err)

	require.Len(t, res.Links, 2)
	assert.Equal(t, "https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-123456", res.Links[0].Href)
	assert.Equal(t, "Pizza Hut, Colaba | Swiggy", res.Links[0].Text)
	assert.Equal(t, "https://www.swiggy.com/city/mumbai/pizza-hut-colaba-rest654321", res.Links[1].Href)
	assert.Equal(t, "pizza hut colaba swiggy at DuckDuckGo", res.Title)
	assert.False(t, res.Challenge)
	assert.Equal(t, "duckduckgo", res.Provider)
}

func TestDuckDuckGo_ChallengeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	res, err := NewDuckDuckGo(DuckDuckGoConfig{BaseURL: srv.URL}).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, res.Challenge)
	assert.Empty(t, res.Links)
}

func TestDuckDuckGo_ChallengePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>DuckDuckGo</title></head><body>We detected unusual traffic. Please try again.</body></html>`))
	}))
	defer srv.Close()

	res, err := NewDuckDuckGo(DuckDuckGoConfig{BaseURL: srv.URL}).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, res.Links)
	assert.True(t, DetectChallenge(res.Title, res.Text))
}

func TestDuckDuckGo_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(DuckDuckGoConfig{BaseURL: srv.URL}).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestUnwrapRedirect(t *testing.T) {
	assert.Equal(t, "https://www.swiggy.com/restaurants/a-1",
		unwrapRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.swiggy.com%2Frestaurants%2Fa-1&rut=x"))
	assert.Equal(t, "https://www.swiggy.com/restaurants/a-1", unwrapRedirect("https://www.swiggy.com/restaurants/a-1"))
}
