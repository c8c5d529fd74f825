// Package tempname generates process-unique prefixes for the temporary files
// staged around a single encode call.
package tempname

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix is the common leading component of every generated name.
const Prefix = "ivc"

// Generate creates a new unique prefix.
// Format: ivc-<timestamp>-<random>
// Example: ivc-1701432000-a1b2c3d4e5f6
func Generate() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%s", Prefix, time.Now().Unix(), random)
}

// Pattern returns an os.CreateTemp pattern for a file with the given role
// and extension, e.g. "ivc-1701432000-a1b2c3d4e5f6-source-*.mp4".
func Pattern(prefix, role, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return fmt.Sprintf("%s-%s-*", prefix, role)
	}
	return fmt.Sprintf("%s-%s-*.%s", prefix, role, ext)
}
