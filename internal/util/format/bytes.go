package format

import "strconv"

var units = []string{"KB", "MB", "GB", "TB", "PB", "EB"}

// HumanizeBytes converts a byte count into a human-readable string (e.g., "1.5 MB").
// Negative counts are shown as "0 B".
func HumanizeBytes(b int64) string {
	const unit = 1024
	if b < 0 {
		b = 0
	}
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	var buf [20]byte
	frac := float64(b) / float64(div)
	s := strconv.AppendFloat(buf[:0], frac, 'f', 1, 64)
	return string(s) + " " + units[exp]
}

// HumanizeRate formats a transfer rate, e.g. "1.2 MB/s".
func HumanizeRate(bytesPerSec float64) string {
	return HumanizeBytes(int64(bytesPerSec)) + "/s"
}
