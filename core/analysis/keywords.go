package analysis

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultKeywordCount is the ranking depth used for every section extraction.
const DefaultKeywordCount = 10

// KeywordSet holds the per-section ranked keyword lists, their overlaps and
// the combined list extracted from the full essay. Derived data; recomputed
// per submission.
type KeywordSet struct {
	Introduction []string `json:"intro_keywords"`
	Middle       []string `json:"middle_keywords"`
	Conclusion   []string `json:"conclusion_keywords"`
	Combined     []string `json:"keywords"`

	IntroMiddle           []string `json:"intro_mid_keywords"`
	IntroConclusion       []string `json:"intro_conclusion_keywords"`
	MiddleConclusion      []string `json:"mid_conclusion_keywords"`
	IntroMiddleConclusion []string `json:"intro_mid_conclusion_keywords"`
}

// textrankKeywords ranks tokens by PageRank over the sentence co-occurrence
// graph: nodes are preprocessed tokens, an edge connects any two distinct
// tokens appearing in the same sentence.
func textrankKeywords(text string, n int) []string {
	graph := NewGraph()
	for _, sentence := range SplitSentences(text) {
		tokens := Preprocess(sentence)
		for _, tok := range tokens {
			graph.AddNode(tok)
		}
		for _, a := range tokens {
			for _, b := range tokens {
				if a != b {
					graph.AddEdge(a, b)
				}
			}
		}
	}
	return graph.TopN(graph.PageRank(), n)
}

// eigenvectorKeywords ranks the unique preprocessed tokens of the whole text
// by eigenvector centrality. The graph carries nodes only (no edges), so the
// scores degenerate to uniform and the ranking falls back to token appearance
// order; kept this way deliberately, see DESIGN.md.
func eigenvectorKeywords(text string, n int) []string {
	graph := NewGraph()
	for _, tok := range Preprocess(text) {
		graph.AddNode(tok)
	}
	return graph.TopN(graph.EigenvectorCentrality(), n)
}

// betweennessKeywords mirrors eigenvectorKeywords with betweenness centrality
// over the same node-only graph.
func betweennessKeywords(text string, n int) []string {
	graph := NewGraph()
	for _, tok := range Preprocess(text) {
		graph.AddNode(tok)
	}
	return graph.TopN(graph.Betweenness(), n)
}

// ExtractKeywords merges the three centrality rankings: each method's top-n
// list contributes one count per keyword; keywords are ordered by total count
// descending, ties broken by first appearance (stable).
func ExtractKeywords(text string, n int) []string {
	counts := make(map[string]int)
	var order []string

	for _, ranked := range [][]string{
		textrankKeywords(text, n),
		eigenvectorKeywords(text, n),
		betweennessKeywords(text, n),
	} {
		for _, kw := range ranked {
			if _, seen := counts[kw]; !seen {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}

// ExtractSections runs the keyword pipeline on the three sections and on the
// concatenated essay. The four extractions are independent and run
// concurrently; the first failure fails the whole stage.
func ExtractSections(ctx context.Context, intro, middle, conclusion string) (KeywordSet, error) {
	var ks KeywordSet
	combined := intro + " " + middle + " " + conclusion

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { ks.Introduction = ExtractKeywords(intro, DefaultKeywordCount); return nil })
	g.Go(func() error { ks.Middle = ExtractKeywords(middle, DefaultKeywordCount); return nil })
	g.Go(func() error { ks.Conclusion = ExtractKeywords(conclusion, DefaultKeywordCount); return nil })
	g.Go(func() error { ks.Combined = ExtractKeywords(combined, DefaultKeywordCount); return nil })
	if err := g.Wait(); err != nil {
		return KeywordSet{}, err
	}

	ks.IntroMiddle = intersect(ks.Introduction, ks.Middle)
	ks.IntroConclusion = intersect(ks.Introduction, ks.Conclusion)
	ks.MiddleConclusion = intersect(ks.Middle, ks.Conclusion)
	ks.IntroMiddleConclusion = intersect(ks.IntroMiddle, ks.Conclusion)
	return ks, nil
}

// KeywordGraphEdges builds the weighted co-occurrence edges between the given
// keywords, accumulating one weight unit per co-occurring sentence pair. Used
// as the keyword_graph renderer payload.
func KeywordGraphEdges(text string, keywords []string) []WeightedEdge {
	kwSet := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kwSet[kw] = struct{}{}
	}

	type pair struct{ a, b string }
	weights := make(map[pair]int)
	var order []pair

	for _, sentence := range SplitSentences(text) {
		tokens := Preprocess(sentence)
		for i, a := range tokens {
			if _, ok := kwSet[a]; !ok {
				continue
			}
			for _, b := range tokens[i+1:] {
				if _, ok := kwSet[b]; !ok || a == b {
					continue
				}
				p := pair{a, b}
				if a > b {
					p = pair{b, a}
				}
				if _, seen := weights[p]; !seen {
					order = append(order, p)
				}
				weights[p]++
			}
		}
	}

	edges := make([]WeightedEdge, 0, len(order))
	for _, p := range order {
		edges = append(edges, WeightedEdge{Source: p.a, Target: p.b, Weight: weights[p]})
	}
	return edges
}

// intersect keeps the elements of `a` that also appear in `b`, preserving
// the ranking order of `a`.
func intersect(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := inB[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
