// Package level holds the XP-to-level arithmetic. Two curves coexist on
// purpose: the chain metric (quadratic) is canonical and drives levels and
// ranking everywhere, while the display metric (linear) feeds progress-bar
// widgets that historically used it. They are named separately rather than
// silently unified.
package level

import "math"

// ForXP returns the chain-metric level for an XP total. Level n begins at
// 100*n*n XP; zero or negative XP is level 0.
func ForXP(xp int64) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Floor(math.Sqrt(float64(xp) / 100)))
}

// Threshold returns the XP at which chain-metric level n begins.
func Threshold(n int) int64 {
	if n <= 0 {
		return 0
	}
	return int64(100 * n * n)
}

// Progress describes position within the current chain-metric level band.
type Progress struct {
	Level     int     `json:"level"`
	IntoLevel int64   `json:"into_level"`
	BandWidth int64   `json:"band_width"`
	Pct       float64 `json:"pct"`
}

// ProgressForXP returns the level plus fractional progress toward the next
// one, with Pct clamped to [0, 100]. Level 0's band starts at 0, which
// keeps the divide below safe (the band width is never zero for xp >= 0).
func ProgressForXP(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	lvl := ForXP(xp)
	lower := Threshold(lvl)
	upper := Threshold(lvl + 1)
	width := upper - lower

	into := xp - lower
	pct := float64(into) / float64(width) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return Progress{
		Level:     lvl,
		IntoLevel: into,
		BandWidth: width,
		Pct:       pct,
	}
}

// DisplayXPForLevel returns the display-metric threshold for level n:
// a linear progression of 1000*n + 500*(n-1).
func DisplayXPForLevel(n int) int64 {
	if n <= 0 {
		return 0
	}
	return int64(n*1000 + (n-1)*500)
}

// DisplayProgress returns the display-metric percentage toward the next
// level: 0 exactly at the level's threshold, 100 at or past the next.
func DisplayProgress(currentXP int64, lvl int) float64 {
	lower := DisplayXPForLevel(lvl)
	upper := DisplayXPForLevel(lvl + 1)
	if currentXP <= lower {
		return 0
	}
	if currentXP >= upper {
		return 100
	}
	return float64(currentXP-lower) / float64(upper-lower) * 100
}
