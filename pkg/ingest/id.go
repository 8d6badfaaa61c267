package ingest

import (
	"path/filepath"
	"strings"
)

// IDFromName derives a document id from a file name: the base name with its
// extension removed and surrounding whitespace trimmed. "reports/Q3 plan.pdf"
// becomes "Q3 plan".
func IDFromName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}
