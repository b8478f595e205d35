package analysis

import (
	"context"
	"math"
	"strings"
	"testing"
)

func TestIntraFeedback_coherentEssay(t *testing.T) {
	// the default stub vector makes every pair perfectly similar
	sc := NewScorer(stubEmbedder{})

	doc, err := sc.IntraFeedback(context.Background(), "Short intro.", "Short middle.", "Short conclusion.")
	if err != nil {
		t.Fatalf("IntraFeedback() error = %v", err)
	}

	for _, name := range sectionNames {
		if !strings.Contains(doc, "Feedback for "+name+":") {
			t.Errorf("missing section header for %s:\n%s", name, doc)
		}
	}
	if !strings.Contains(doc, "Sentence length is varied and appropriate.") {
		t.Errorf("missing sentence length note:\n%s", doc)
	}
	if !strings.Contains(doc, "The conclusion effectively summarizes the main points.") {
		t.Errorf("missing conclusion note:\n%s", doc)
	}
	if !strings.Contains(doc, "Sections are coherent and logically connected.") {
		t.Errorf("missing cross-section note:\n%s", doc)
	}
}

func TestIntraFeedback_longSentence(t *testing.T) {
	sc := NewScorer(stubEmbedder{})
	long := strings.Repeat("word ", 30) + "."

	doc, err := sc.IntraFeedback(context.Background(), long, "Middle.", "Conclusion.")
	if err != nil {
		t.Fatalf("IntraFeedback() error = %v", err)
	}
	if !strings.Contains(doc, "Some sentences are too long (more than 25 words):") {
		t.Errorf("long sentence not flagged:\n%s", doc)
	}
}

func TestIntraFeedback_incoherentConclusion(t *testing.T) {
	intro := "Alpha."
	middle := "Beta."
	conclusion := "Gamma."
	// the conclusion embeds orthogonal to everything else
	sc := NewScorer(stubEmbedder{vecs: map[string][]float64{
		conclusion:             {0, 1},
		intro + " " + middle:   {1, 0},
	}})

	doc, err := sc.IntraFeedback(context.Background(), intro, middle, conclusion)
	if err != nil {
		t.Fatalf("IntraFeedback() error = %v", err)
	}
	if !strings.Contains(doc, "The conclusion does not effectively summarize the main points.") {
		t.Errorf("weak conclusion not flagged:\n%s", doc)
	}
	if !strings.Contains(doc, "Coherence issue between Middle and Conclusion.") {
		t.Errorf("cross-section issue not flagged:\n%s", doc)
	}
}

func TestSectionFeedback_incoherentSentences(t *testing.T) {
	// consecutive sentences with similarity 0.2, below the 0.3 floor
	sc := NewScorer(stubEmbedder{vecs: map[string][]float64{
		"First point": {1, 0},
		"Other topic": {0.2, math.Sqrt(0.96)},
	}})

	doc, err := sc.sectionFeedback(context.Background(), "First point. Other topic.", "Introduction")
	if err != nil {
		t.Fatalf("sectionFeedback() error = %v", err)
	}
	if !strings.Contains(doc, "Coherence issue between sentences") {
		t.Errorf("incoherent pair not flagged:\n%s", doc)
	}
}
