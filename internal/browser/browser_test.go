package browser

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSubresource(t *testing.T) {
	for _, rt := range []string{"Image", "font", "Stylesheet", "Media"} {
		assert.True(t, IsSubresource(rt), rt)
	}
	for _, rt := range []string{"XHR", "Fetch", "Document", ""} {
		assert.False(t, IsSubresource(rt), rt)
	}
}

func TestStubBrowser_SnapshotsPerVisit(t *testing.T) {
	b := NewStubBrowser(map[string]*StubPage{
		"https://example.com/a": {
			Snapshots: []Snapshot{{Title: "loading"}, {Title: "ready"}},
		},
	})

	s, err := b.NewSession(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Navigate(context.Background(), "https://example.com/a"))
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loading", snap.Title)
	assert.Equal(t, "https://example.com/a", snap.URL)

	require.NoError(t, s.Reload(context.Background()))
	snap, _ = s.Snapshot(context.Background())
	assert.Equal(t, "ready", snap.Title)

	require.NoError(t, s.Reload(context.Background()))
	snap, _ = s.Snapshot(context.Background())
	assert.Equal(t, "ready", snap.Title)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/a", "https://example.com/a"}, b.History())
	assert.Equal(t, 1, b.Sessions())
}

func TestStubBrowser_ResponsesFiltered(t *testing.T) {
	b := NewStubBrowser(map[string]*StubPage{
		"u": {Responses: []Response{
			{URL: "u/logo.png", Status: 200, ResourceType: "Image", Body: []byte("png")},
			{URL: "u/api", Status: 200, ResourceType: "XHR", Body: []byte(`{}`)},
		}},
	})

	s, _ := b.NewSession(context.Background())
	var got []Response
	s.OnResponse(func(r Response) bool {
		assert.Nil(t, r.Body)
		return !IsSubresource(r.ResourceType)
	}, func(r Response) {
		got = append(got, r)
	})

	require.NoError(t, s.Navigate(context.Background(), "u"))
	require.Len(t, got, 1)
	assert.Equal(t, "u/api", got[0].URL)
	assert.Equal(t, []byte(`{}`), got[0].Body)
}

func TestStubBrowser_Errors(t *testing.T) {
	b := NewStubBrowser(nil)
	b.OpenErr = eris.New("no chrome")
	_, err := b.NewSession(context.Background())
	assert.Error(t, err)

	b.OpenErr = nil
	b.SetPage("slow", &StubPage{NavErr: eris.New("net::ERR_TIMED_OUT")})
	s, err := b.NewSession(context.Background())
	require.NoError(t, err)
	assert.Error(t, s.Navigate(context.Background(), "slow"))

	// Page state is still observable after a navigation error.
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "slow", snap.URL)
}
