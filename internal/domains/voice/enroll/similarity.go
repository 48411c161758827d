package enroll

import (
	"strings"
	"unicode"
)

// Normalize lowercases, strips everything but letters, digits and spaces,
// and collapses whitespace, so recognizer punctuation quirks don't count
// as errors.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var cleaned strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			cleaned.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(cleaned.String()), " ")
}

// Distance computes edit distance with substitutions costing two (a
// deletion plus an insertion). Same-length words with different letters
// score markedly worse than under a unit-cost metric, which is what keeps
// near-homophones like "okay" from matching "play" during enrollment.
func Distance(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr := make([]int, lb+1)
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 2
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min(del, min(ins, sub))
		}
		prev = curr
	}

	return prev[lb]
}

// CER is the character error rate of spoken against expected: normalized
// edit distance over reference length, capped at 1.
func CER(spoken, expected string) float64 {
	s := Normalize(spoken)
	e := Normalize(expected)
	denom := len(e)
	if denom < 1 {
		denom = 1
	}
	cer := float64(Distance(s, e)) / float64(denom)
	if cer > 1 {
		cer = 1
	}
	return cer
}

// Similarity is 1 - CER.
func Similarity(spoken, expected string) float64 {
	return 1 - CER(spoken, expected)
}

// AcceptThreshold is stricter for short phrases, which carry less signal
// per word.
func AcceptThreshold(expected string) float64 {
	if len(strings.Fields(Normalize(expected))) <= 3 {
		return 0.8
	}
	return 0.7
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
