package artifact

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

const maxFilenameBytes = 255

var filenameReplacer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename replaces characters that are unsafe in file names and caps
// the length at 255 bytes, keeping the extension.
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(name)
	if len(name) <= maxFilenameBytes {
		return name
	}

	ext := filepath.Ext(name)
	if len(ext) >= maxFilenameBytes {
		return name[:maxFilenameBytes]
	}
	return name[:maxFilenameBytes-len(ext)] + ext
}

// FormatDuration renders d as "12.3s", "2m 5.0s" or "1h 2m".
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		m := math.Floor(s / 60)
		return fmt.Sprintf("%dm %.1fs", int(m), s-m*60)
	default:
		h := math.Floor(s / 3600)
		m := math.Floor((s - h*3600) / 60)
		return fmt.Sprintf("%dh %dm", int(h), int(m))
	}
}
