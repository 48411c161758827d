package enroll

import (
	"testing"
)

func TestCERIdentical(t *testing.T) {
	if got := CER("youtube pause", "youtube pause"); got != 0 {
		t.Errorf("expected CER 0 for identical phrases, got %v", got)
	}
}

func TestCERSingleCharDrop(t *testing.T) {
	got := CER("youtub pause", "youtube pause")
	if got <= 0 || got >= 1 {
		t.Errorf("expected CER in (0,1), got %v", got)
	}
}

func TestCERCapsAtOne(t *testing.T) {
	if got := CER("completely different and much longer utterance", "hi"); got != 1 {
		t.Errorf("expected CER capped at 1, got %v", got)
	}
}

func TestCEREmptyExpected(t *testing.T) {
	if got := CER("anything", ""); got != 1 {
		t.Errorf("expected CER 1 against empty reference, got %v", got)
	}
}

func TestNormalizeStripsPunctuationAndCase(t *testing.T) {
	if got := Normalize("  Hey, YouTube!  "); got != "hey youtube" {
		t.Errorf("unexpected normalization: %q", got)
	}
}

func TestSimilarityAcceptance(t *testing.T) {
	// "YouTube play" has 2 words, so the 0.8 threshold applies.
	phrase := "YouTube play"
	if AcceptThreshold(phrase) != 0.8 {
		t.Fatalf("expected threshold 0.8 for 2-word phrase, got %v", AcceptThreshold(phrase))
	}

	if sim := Similarity("youtube play", phrase); sim != 1 {
		t.Errorf("exact match should have similarity 1, got %v", sim)
	}
	if sim := Similarity("youtube okay", phrase); sim >= 0.8 {
		t.Errorf("\"youtube okay\" must be rejected, similarity %v", sim)
	}
}

func TestAcceptThresholdLongPhrase(t *testing.T) {
	if got := AcceptThreshold("youtube skip ahead thirty seconds"); got != 0.7 {
		t.Errorf("expected threshold 0.7 for 5-word phrase, got %v", got)
	}
}

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"youtube", "youtub", 1},
		{"okay", "play", 4}, // two substitutions, each costing 2
	}
	for _, c := range cases {
		if got := Distance(c.a, c.b); got != c.want {
			t.Errorf("Distance(%q,%q)=%d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestHypothesisReady(t *testing.T) {
	phrase := "youtube skip ahead thirty seconds"
	if hypothesisReady("youtube", phrase) {
		t.Error("short partial should not be judged")
	}
	if !hypothesisReady("youtube skip ahead thirty seconds", phrase) {
		t.Error("full word count should be judged")
	}
	if !hypothesisReady("youtube skip ahead thirt", phrase) {
		t.Error("70% character length should be judged")
	}
}
