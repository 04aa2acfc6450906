package sentiment

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const SystemPrompt = "You are a sentiment analysis tool. You receive numbered comments, one per line. " +
	"For each comment respond with its number followed by a single score between 0 and 1, " +
	"where 0 is extremely negative and 1 is extremely positive, for example \"1. 0.8\". " +
	"Answer with exactly one line per comment, in order, and nothing else."

var indexPrefix = regexp.MustCompile(`^\s*(\d+)\s*(?:[.:)]\s+|[:)])\s*(.*)$`)

// BuildPrompt puts every text on its own numbered line. Line breaks inside a
// comment are collapsed so the answer can be split by line.
func BuildPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString("Analyze the sentiment of these comments:\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(strings.Fields(t), " "))
	}
	return b.String()
}

// ParseScores maps a model answer onto n scores. A line count other than n
// makes every score neutral; a single unusable line makes only that score
// neutral. The second return value reports whether the answer lined up.
func ParseScores(raw string, n int) ([]float64, bool) {
	lines := make([]string, 0, n)
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) != n {
		return NeutralScores(n), false
	}

	if scores, ok := parseIndexed(lines, n); ok {
		return scores, true
	}

	scores := make([]float64, n)
	for i, line := range lines {
		if m := indexPrefix.FindStringSubmatch(line); m != nil {
			line = m[2]
		}
		scores[i] = parseScore(line)
	}
	return scores, true
}

// parseIndexed places scores by their "N." prefix when every line has one
// and the indices are exactly 1..n.
func parseIndexed(lines []string, n int) ([]float64, bool) {
	scores := make([]float64, n)
	seen := make([]bool, n)
	for _, line := range lines {
		m := indexPrefix.FindStringSubmatch(line)
		if m == nil {
			return nil, false
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n || seen[idx-1] {
			return nil, false
		}
		seen[idx-1] = true
		scores[idx-1] = parseScore(m[2])
	}
	return scores, true
}

func parseScore(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,;")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return NeutralScore
	}
	return clamp(v)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return NeutralScore
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
