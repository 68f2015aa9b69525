// Package classify maps detected media types onto the fixed category set
// used for folder placement and search filtering.
package classify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"filedex/internal/model"
)

// Classify maps a MIME type string to a storage category.
// It is total: any input it does not recognize yields CategoryOther.
func Classify(mime string) model.Category {
	// Strip parameters like "; charset=utf-8" before matching.
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))

	switch {
	case mime == "application/json" || mime == "text/json":
		return model.CategoryJSON
	case mime == "application/pdf":
		return model.CategoryPDF
	case strings.HasPrefix(mime, "image/"):
		return model.CategoryImage
	case strings.HasPrefix(mime, "video/"):
		return model.CategoryVideo
	case strings.HasPrefix(mime, "audio/"):
		return model.CategoryAudio
	case strings.HasPrefix(mime, "text/"):
		return model.CategoryText
	default:
		return model.CategoryOther
	}
}

// ClassifyFile maps a sniffed MIME type plus the original filename to a
// storage category. A ".json" extension overrides a text or other
// classification: content sniffers report truncated or invalid JSON as
// plain text, and such files must still reach the JSON validation gate
// instead of being quietly filed as text.
func ClassifyFile(mime, name string) model.Category {
	cat := Classify(mime)
	if (cat == model.CategoryText || cat == model.CategoryOther) &&
		strings.EqualFold(filepath.Ext(name), ".json") {
		return model.CategoryJSON
	}
	return cat
}

// Detector provides an interface for MIME detection so the pipeline can be
// tested without content sniffing.
type Detector interface {
	// DetectFile sniffs the media type of the file at path.
	DetectFile(path string) (string, error)

	// DetectBytes sniffs the media type of in-memory content.
	DetectBytes(b []byte) string
}

// SniffDetector detects media types by content sniffing. Detection reads a
// bounded prefix of the input, never the whole file.
type SniffDetector struct{}

func NewSniffDetector() *SniffDetector { return &SniffDetector{} }

// DetectFile sniffs the media type of the file at path.
func (*SniffDetector) DetectFile(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting media type of %s: %w", path, err)
	}
	return mtype.String(), nil
}

// DetectBytes sniffs the media type of in-memory content.
func (*SniffDetector) DetectBytes(b []byte) string {
	return mimetype.Detect(b).String()
}

// Compile-time check that SniffDetector implements Detector
var _ Detector = (*SniffDetector)(nil)
