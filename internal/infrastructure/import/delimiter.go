package csvimport

import (
	"math"
	"strings"
)

// DelimiterCandidates are tried in this order; earlier candidates win ties.
var DelimiterCandidates = []rune{',', ';', '\t', '|'}

// DefaultDelimiter is used when detection finds no candidate
const DefaultDelimiter = ','

const delimiterSampleLines = 5

// DetectDelimiter guesses the field delimiter from the first lines of text.
//
// For each candidate the field count of every sampled line is computed, and the
// candidate is scored mean/(meanAbsoluteDeviation+1). The best scoring candidate
// with a mean field count above one wins. A consistent count across lines matters
// more than a large one.
func DetectDelimiter(text string) rune {
	lines := sampleLines(text, delimiterSampleLines)
	if len(lines) == 0 {
		return DefaultDelimiter
	}

	best := rune(0)
	bestScore := math.Inf(-1)
	for _, d := range DelimiterCandidates {
		mean, dev := fieldCountStats(lines, d)
		if mean <= 1 {
			continue
		}
		score := mean / (dev + 1)
		if score > bestScore {
			best = d
			bestScore = score
		}
	}
	if best == 0 {
		return DefaultDelimiter
	}
	return best
}

func sampleLines(text string, n int) []string {
	lines := make([]string, 0, n)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

func fieldCountStats(lines []string, d rune) (mean, deviation float64) {
	sep := string(d)
	counts := make([]float64, len(lines))
	for i, line := range lines {
		counts[i] = float64(len(strings.Split(line, sep)))
		mean += counts[i]
	}
	mean /= float64(len(counts))
	for _, c := range counts {
		deviation += math.Abs(c - mean)
	}
	deviation /= float64(len(counts))
	return mean, deviation
}
