package report

import (
	"strings"

	"rmn-analyst/internal/shared/util"
)

// CombineContents joins uploaded texts in order with a blank line between them.
func CombineContents(fileContents []string) string {
	return strings.Join(fileContents, "\n\n")
}

// CacheID fingerprints the inputs that determine an analysis.
func CacheID(combined string, docType DocumentType, model, promptVersion string) string {
	return util.SHA256Hex(combined + "|" + string(docType) + "|" + model + "|" + promptVersion)
}
