package util

import (
	"path/filepath"
	"strings"
)

var pathUnsafe = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

// OutputFilename builds "<title>.<ext>" inside dir. Only path separators and
// NUL are replaced so the file cannot escape dir; the title is otherwise kept.
func OutputFilename(dir, title, ext string) string {
	name := pathUnsafe.Replace(title) + "." + ext
	if dir == "" || dir == "." {
		return name
	}
	return filepath.Join(dir, name)
}
