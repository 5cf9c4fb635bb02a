package ui

import (
	"github.com/dustin/go-humanize"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders n in base-1024 units with at most two decimals:
// 0 -> "0 Bytes", 1536 -> "1.5 KB". Values past TB stay in TB.
func FormatBytes(n uint64) string {
	if n == 0 {
		return "0 Bytes"
	}
	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return humanize.FtoaWithDigits(v, 2) + " " + byteUnits[unit]
}

// formatCount groups thousands for footer counters.
func formatCount(n uint64) string {
	return humanize.Comma(int64(n))
}
