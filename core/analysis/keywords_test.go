package analysis

import (
	"context"
	"reflect"
	"testing"
)

const sampleText = "Climate change affects agriculture worldwide. " +
	"Farmers adapt their agriculture to changing climate patterns. " +
	"Technology helps farmers monitor climate and soil conditions. " +
	"Sustainable agriculture reduces the impact of climate change."

func TestExtractKeywords_deterministic(t *testing.T) {
	first := ExtractKeywords(sampleText, DefaultKeywordCount)
	for i := 0; i < 5; i++ {
		if got := ExtractKeywords(sampleText, DefaultKeywordCount); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
	if len(first) == 0 {
		t.Fatal("no keywords extracted")
	}
	if len(first) > DefaultKeywordCount {
		t.Fatalf("got %d keywords; want at most %d", len(first), DefaultKeywordCount)
	}
}

func TestExtractKeywords_rankedByAgreement(t *testing.T) {
	keywords := ExtractKeywords(sampleText, DefaultKeywordCount)

	// climate and agriculture recur in every sentence; all three methods
	// should surface them near the top
	found := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		found[kw] = true
	}
	for _, want := range []string{"climate", "agriculture"} {
		if !found[want] {
			t.Errorf("keyword %q missing from %v", want, keywords)
		}
	}
}

func TestExtractKeywords_empty(t *testing.T) {
	if got := ExtractKeywords("", DefaultKeywordCount); len(got) != 0 {
		t.Errorf("ExtractKeywords(\"\") = %v; want empty", got)
	}
}

func TestExtractSections(t *testing.T) {
	intro := "Climate change is a global challenge. It affects every country."
	middle := "Agriculture suffers from droughts. Farmers lose crops to climate extremes."
	conclusion := "Climate adaptation in agriculture is urgent. Farmers need support."

	ks, err := ExtractSections(context.Background(), intro, middle, conclusion)
	if err != nil {
		t.Fatalf("ExtractSections() error = %v", err)
	}

	if len(ks.Introduction) == 0 || len(ks.Middle) == 0 || len(ks.Conclusion) == 0 {
		t.Fatal("expected keywords for every section")
	}

	// the combined list is a fourth extraction over the whole essay
	combined := ExtractKeywords(intro+" "+middle+" "+conclusion, DefaultKeywordCount)
	if !reflect.DeepEqual(ks.Combined, combined) {
		t.Errorf("Combined = %v; want %v", ks.Combined, combined)
	}

	// intersections preserve the first operand's ranking order
	if got := intersect(ks.Introduction, ks.Middle); !reflect.DeepEqual(ks.IntroMiddle, got) {
		t.Errorf("IntroMiddle = %v; want %v", ks.IntroMiddle, got)
	}
	if got := intersect(ks.IntroMiddle, ks.Conclusion); !reflect.DeepEqual(ks.IntroMiddleConclusion, got) {
		t.Errorf("IntroMiddleConclusion = %v; want %v", ks.IntroMiddleConclusion, got)
	}
}

func TestIntersect(t *testing.T) {
	got := intersect([]string{"c", "a", "b"}, []string{"a", "c", "x"})
	want := []string{"c", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("intersect() = %v; want %v", got, want)
	}
	if got := intersect(nil, []string{"a"}); got != nil {
		t.Errorf("intersect(nil, _) = %v; want nil", got)
	}
}

func TestKeywordGraphEdges(t *testing.T) {
	text := "apple banana. apple banana cherry."
	edges := KeywordGraphEdges(text, []string{"apple", "banana", "cherry"})

	byPair := make(map[[2]string]int, len(edges))
	for _, e := range edges {
		byPair[[2]string{e.Source, e.Target}] = e.Weight
	}
	if got := byPair[[2]string{"apple", "banana"}]; got != 2 {
		t.Errorf("apple-banana weight = %d; want 2", got)
	}
	if got := byPair[[2]string{"apple", "cherry"}]; got != 1 {
		t.Errorf("apple-cherry weight = %d; want 1", got)
	}
	if got := byPair[[2]string{"banana", "cherry"}]; got != 1 {
		t.Errorf("banana-cherry weight = %d; want 1", got)
	}
}

func TestKeywordGraphEdges_ignoresNonKeywords(t *testing.T) {
	edges := KeywordGraphEdges("apple orange banana.", []string{"apple", "banana"})
	if len(edges) != 1 {
		t.Fatalf("got %d edges; want 1", len(edges))
	}
	if edges[0].Source != "apple" || edges[0].Target != "banana" {
		t.Errorf("edge = %+v; want apple-banana", edges[0])
	}
}
