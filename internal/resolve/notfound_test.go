package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/menu-scout/internal/browser"
)

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		snap *browser.Snapshot
		want bool
	}{
		{"nil", nil, false},
		{"menu page", &browser.Snapshot{Title: "Pizza Hut, Colaba | Swiggy", Text: "Recommended (20)\nMargherita"}, false},
		{"bare uh-oh", &browser.Snapshot{Text: "Uh-oh!\nSomething went wrong"}, true},
		{"closed outlet", &browser.Snapshot{Text: "Uh-oh! Outlet is not accepting orders at the moment."}, false},
		{"closed outlet split lines", &browser.Snapshot{Text: "Uh-oh!\n Outlet is not\naccepting orders at the moment."}, false},
		{"sorry banner", &browser.Snapshot{Text: "Sorry! This should not have happened. Please retry."}, true},
		{"page not found title", &browser.Snapshot{Title: "  Page Not Found "}, true},
		{"movie not found title", &browser.Snapshot{Title: "movie not found"}, true},
		{"page not found node", &browser.Snapshot{TextNodes: []string{"Home", "Page Not Found"}}, true},
		{"page not found inside sentence", &browser.Snapshot{TextNodes: []string{"Page Not Found? Try search"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsNotFound(tt.snap))
		})
	}
}
