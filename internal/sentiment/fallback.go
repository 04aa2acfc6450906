package sentiment

import "unicode/utf8"

const (
	NeutralScore = 0.5

	fallbackEvenScore = 0.7
	fallbackOddScore  = 0.3
)

// FallbackScore is a deterministic placeholder, not a sentiment estimate:
// texts with an even number of characters score 0.7, odd ones 0.3.
func FallbackScore(text string) float64 {
	if utf8.RuneCountInString(text)%2 == 0 {
		return fallbackEvenScore
	}
	return fallbackOddScore
}

func FallbackScores(texts []string) []float64 {
	scores := make([]float64, len(texts))
	for i, t := range texts {
		scores[i] = FallbackScore(t)
	}
	return scores
}

func NeutralScores(n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = NeutralScore
	}
	return scores
}
