package resolve

import (
	"strings"

	"github.com/sells-group/menu-scout/internal/browser"
)

var notFoundTitles = map[string]bool{
	"page not found":  true,
	"movie not found": true,
}

// IsNotFound classifies a rendered page as a missing or broken record. The
// "Uh-oh!" banner also appears on outlets that are closed for orders; that
// page is a valid record and is not classified as missing.
func IsNotFound(snap *browser.Snapshot) bool {
	if snap == nil {
		return false
	}
	text := strings.ToLower(strings.Join(strings.Fields(snap.Text), " "))

	if strings.Contains(text, "uh-oh!") && !strings.Contains(text, "outlet is not accepting orders") {
		return true
	}
	if strings.Contains(text, "sorry! this should not have happened") {
		return true
	}
	if notFoundTitles[strings.ToLower(strings.TrimSpace(snap.Title))] {
		return true
	}
	for _, node := range snap.TextNodes {
		if node == "Page Not Found" {
			return true
		}
	}
	return false
}
