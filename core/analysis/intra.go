package analysis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Similarity floors below which the intra-essay reviewer flags a problem.
const (
	sentenceCoherenceFloor = 0.3
	sectionCoherenceFloor  = 0.5
	longSentenceWords      = 25
)

var sectionNames = []string{"Introduction", "Middle", "Conclusion"}

// IntraFeedback reviews one essay in isolation: sentence length diversity,
// sentence-to-sentence coherence per section, how well the conclusion
// summarizes the rest, and coherence across sections. Returns one combined
// feedback document. Section reviews are independent and run concurrently.
func (sc *Scorer) IntraFeedback(ctx context.Context, intro, middle, conclusion string) (string, error) {
	sections := []string{intro, middle, conclusion}
	sectionDocs := make([]string, len(sections))

	var conclusionDoc, crossDoc string
	g, gctx := errgroup.WithContext(ctx)
	for i := range sections {
		i := i
		g.Go(func() error {
			doc, err := sc.sectionFeedback(gctx, sections[i], sectionNames[i])
			sectionDocs[i] = doc
			return err
		})
	}
	g.Go(func() error {
		var err error
		conclusionDoc, err = sc.conclusionFeedback(gctx, intro, middle, conclusion)
		return err
	})
	g.Go(func() error {
		var err error
		crossDoc, err = sc.sectionCoherenceFeedback(gctx, sections)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	var doc strings.Builder
	for _, d := range sectionDocs {
		doc.WriteString(d)
	}
	doc.WriteString(conclusionDoc)
	doc.WriteString(crossDoc)
	return doc.String(), nil
}

func (sc *Scorer) sectionFeedback(ctx context.Context, section, name string) (string, error) {
	var doc strings.Builder
	doc.WriteString("Feedback for " + name + ":\n")

	sentences := SplitSentences(section)

	var long []string
	for _, s := range sentences {
		if len(strings.Fields(s)) > longSentenceWords {
			long = append(long, s)
		}
	}
	if len(long) > 0 {
		doc.WriteString(fmt.Sprintf("Some sentences are too long (more than %d words):\n", longSentenceWords))
		for _, s := range long {
			doc.WriteString("  - " + s + "\n")
		}
		doc.WriteString("Suggestion: try to break down long sentences into shorter, clearer ones; a mix of short and long sentences reads better.\n")
	} else {
		doc.WriteString("Sentence length is varied and appropriate.\n")
	}

	if len(sentences) >= 2 {
		embeddings, err := sc.embedSentences(ctx, sentences)
		if err != nil {
			return "", err
		}
		var issues bool
		for i := 1; i < len(sentences); i++ {
			if cosine(embeddings[i-1], embeddings[i]) < sentenceCoherenceFloor {
				doc.WriteString(fmt.Sprintf("Coherence issue between sentences: %q and %q.\n", sentences[i-1], sentences[i]))
				issues = true
			}
		}
		if !issues {
			doc.WriteString("Sentences are coherent and logically connected.\n")
		}
	}
	return doc.String(), nil
}

// conclusionFeedback checks whether the conclusion summarizes the main points
// by comparing its embedding against the combined introduction+middle text.
func (sc *Scorer) conclusionFeedback(ctx context.Context, intro, middle, conclusion string) (string, error) {
	embeddings, err := sc.embedder.Embed(ctx, []string{intro + " " + middle, conclusion})
	if err != nil {
		return "", err
	}
	if cosine(embeddings[0], embeddings[1]) < sectionCoherenceFloor {
		return "The conclusion does not effectively summarize the main points. " +
			"Suggestion: make sure the conclusion brings together the main points discussed and restates the thesis in a new way.\n", nil
	}
	return "The conclusion effectively summarizes the main points.\n", nil
}

func (sc *Scorer) sectionCoherenceFeedback(ctx context.Context, sections []string) (string, error) {
	embeddings, err := sc.embedder.Embed(ctx, sections)
	if err != nil {
		return "", err
	}
	var doc strings.Builder
	for i := 1; i < len(sections); i++ {
		if cosine(embeddings[i-1], embeddings[i]) < sectionCoherenceFloor {
			doc.WriteString(fmt.Sprintf("Coherence issue between %s and %s.\n", sectionNames[i-1], sectionNames[i]))
		}
	}
	if doc.Len() == 0 {
		return "Sections are coherent and logically connected.\n", nil
	}
	return doc.String(), nil
}
