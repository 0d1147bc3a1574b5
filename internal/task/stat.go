package task

import (
	"os"
	"time"
)

// modTime returns a file's modification timestamp, or false if the file
// cannot be stat'ed.
func modTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
