// Package version extracts version numbers from tool output and compares
// them numerically.
//
// Comparison works on dot-separated numeric components only. Pre-release and
// build suffixes ("-rc1", "+git") are dropped, missing trailing components
// count as zero, so "3.1" == "3.1.0" and pandoc's four-part versions compare
// naturally against three-part minimums.
package version

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Generic extraction patterns, most specific first. Each captures the
// version in group 1.
var (
	wordVersion   = regexp.MustCompile(`(?i)\bversion\s*:?\s+v?(\d+(?:\.\d+)+(?:[-+][0-9A-Za-z.\-]+)?)`)
	prefixVersion = regexp.MustCompile(`(?:^|[\s(])v?(\d+(?:\.\d+)+(?:[-+][0-9A-Za-z.\-]+)?)`)
	bareVersion   = regexp.MustCompile(`(\d+(?:\.\d+)+)`)

	validVersion = regexp.MustCompile(`^[vV]?\d+(?:\.\d+)*(?:[-+][0-9A-Za-z.\-]+)?$`)
)

// GenericPatterns returns the fallback patterns in priority order.
func GenericPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{wordVersion, prefixVersion, bareVersion}
}

// Extract returns group 1 of the first pattern that matches output. Tool
// specific patterns go first; the generic ones are always tried after them.
func Extract(output string, patterns ...*regexp.Regexp) (string, bool) {
	all := make([]*regexp.Regexp, 0, len(patterns)+3)
	for _, p := range patterns {
		if p != nil {
			all = append(all, p)
		}
	}
	all = append(all, GenericPatterns()...)

	for _, p := range all {
		m := p.FindStringSubmatch(output)
		if len(m) >= 2 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// Normalize returns the numeric components of v. A leading "v" and anything
// after "-" or "+" are ignored; non-numeric components count as 0.
func Normalize(v string) []int {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	if i := strings.IndexAny(v, "-+ "); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i] = leadingInt(p)
	}
	return out
}

// Compare returns -1, 0 or 1 as a is lower than, equal to or greater than b.
func Compare(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	n := max(len(na), len(nb))
	for i := 0; i < n; i++ {
		x, y := at(na, i), at(nb, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// IsAtLeast reports whether v is equal to or newer than minimum.
// An empty minimum accepts everything.
func IsAtLeast(v, minimum string) bool {
	if strings.TrimSpace(minimum) == "" {
		return true
	}
	return Compare(v, minimum) >= 0
}

// Valid reports whether v looks like a version: digits, optional dotted
// components, optional "v" prefix and suffix.
func Valid(v string) bool {
	return validVersion.MatchString(strings.TrimSpace(v))
}

func at(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

// leadingInt parses the digits s starts with. A run too large for an int
// saturates at math.MaxInt so it still ranks above every real component.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return math.MaxInt
	}
	return n
}
