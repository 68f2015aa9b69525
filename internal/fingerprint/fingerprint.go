// Package fingerprint computes content digests and collision-free stored
// filenames for ingested items.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Reader streams r through SHA-256 and returns the 64-char lowercase hex
// digest. The input is read in bounded chunks; content is never buffered
// whole.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the SHA-256 hex digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()
	return Reader(f)
}

// Bytes returns the SHA-256 hex digest of in-memory content.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Clock abstracts time retrieval so stored names are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Namer generates unique stored filenames of the form
//
//	<unix-nanos>-<seq>_<sanitized-base>
//
// The wall-clock prefix keeps names sortable by ingestion time; the
// process-wide monotonic sequence disambiguates calls that land in the
// same clock tick, so two racing ingestions never collide.
type Namer struct {
	clock Clock
	seq   atomic.Uint64
}

// NewNamer creates a Namer using the given clock.
func NewNamer(clock Clock) *Namer {
	return &Namer{clock: clock}
}

// StoredName returns a unique stored filename for the given original name.
// Only the base name of originalName is used, with path separators and
// control characters stripped.
func (n *Namer) StoredName(originalName string) string {
	seq := n.seq.Add(1)
	ts := n.clock.Now().UTC().UnixNano()
	return fmt.Sprintf("%d-%04d_%s", ts, seq, SanitizeName(originalName))
}

// SanitizeName reduces a raw name to a safe base filename: directory
// components are dropped and separator or control characters replaced.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "unnamed"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '/' || r == '\\' || r == 0:
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayName strips the "<nanos>-<seq>_" prefix a Namer adds, recovering
// the original base name for presentation.
func DisplayName(storedName string) string {
	i := strings.IndexByte(storedName, '_')
	if i < 0 {
		return storedName
	}
	prefix := storedName[:i]
	for _, r := range prefix {
		if (r < '0' || r > '9') && r != '-' {
			return storedName
		}
	}
	return storedName[i+1:]
}
