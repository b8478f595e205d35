package analysis

import (
	"context"
	"fmt"
	"strings"
)

// ReferenceKind tags what a Comparison was computed against.
type ReferenceKind string

const (
	ReferenceClassAverage    ReferenceKind = "class_average"
	ReferencePriorSubmission ReferenceKind = "prior_submission"
)

// Visualization kinds understood by the external renderer.
const (
	VizRadar        = "radar"
	VizBar          = "bar"
	VizVenn         = "venn"
	VizWordCloud    = "wordcloud"
	VizKeywordGraph = "keyword_graph"
)

// Renderer is the external chart/word-cloud/graph renderer. The returned
// reference is a stable opaque identifier for the produced artifact.
type Renderer interface {
	Render(ctx context.Context, kind string, data interface{}) (string, error)
}

// Comparison is the structured outcome of comparing a subject score vector
// against a reference (class cohort or the student's prior submission).
type Comparison struct {
	Kind             ReferenceKind      `json:"reference_kind"`
	Deltas           map[string]float64 `json:"deltas"` // subject - reference, per metric
	Feedback         string             `json:"feedback"`
	VisualizationRef string             `json:"visualization_ref"`
}

// Score tiers used to select narrative advice. Reproduces the original band
// edges: 5.x falls through to the top band.
const (
	tierNeedsImprovement = "needs improvement"
	tierSolid            = "solid"
	tierExcellent        = "excellent"
)

func scoreTier(score float64) string {
	switch {
	case score <= 5:
		return tierNeedsImprovement
	case 6 <= score && score <= 8:
		return tierSolid
	default:
		return tierExcellent
	}
}

var metricLabels = map[string]string{
	MetricOriginality:     "Originality",
	MetricCoherence:       "Coherence",
	MetricTopicRelevance:  "Topic relevance",
	MetricDepthOfAnalysis: "Depth of analysis",
	MetricKeywordDensity:  "Keyword density",
}

// tierAdvice maps metric and tier to an improvement suggestion.
var tierAdvice = map[string]map[string]string{
	MetricOriginality: {
		tierNeedsImprovement: "Incorporating unique perspectives or varied vocabulary might improve originality; avoiding repetitive phrases might also help.",
		tierSolid:            "Good effort! Adding more distinct viewpoints or diverse vocabulary might further enhance originality.",
		tierExcellent:        "Excellent originality! Continuing to explore creative expressions might maintain this strength.",
	},
	MetricCoherence: {
		tierNeedsImprovement: "Improving the flow between sentences might enhance coherence; transitional phrases might help with readability.",
		tierSolid:            "Your essay is fairly coherent. Refining transitions and logical flow might bring coherence to an even higher level.",
		tierExcellent:        "Your essay is very coherent! Maintaining this flow and logic might help sustain reader engagement.",
	},
	MetricTopicRelevance: {
		tierNeedsImprovement: "Focusing more directly on the main topic might improve relevance; avoiding off-topic details might also help.",
		tierSolid:            "Good job staying relevant! Ensuring that each section directly supports the topic might further enhance relevance.",
		tierExcellent:        "Great relevance! Continuing to focus closely on the topic might keep arguments clear and compelling.",
	},
	MetricDepthOfAnalysis: {
		tierNeedsImprovement: "Exploring ideas in more depth might strengthen your analysis; providing examples might improve support for your argument.",
		tierSolid:            "Your analysis is good but might be deeper. Adding additional details or evidence might further reinforce your points.",
		tierExcellent:        "Impressive depth! Continuing to include insightful analysis might sustain this strong performance.",
	},
	MetricKeywordDensity: {
		tierNeedsImprovement: "Incorporating more topic-specific keywords might help emphasize key themes; avoiding overly generic language might also improve clarity.",
		tierSolid:            "Solid keyword usage! Ensuring essential terms are present without overloading might further enhance clarity.",
		tierExcellent:        "Great keyword density! Maintaining balanced keyword usage might help keep the essay focused and readable.",
	},
}

// CohortInput pairs the radar chart payload sent to the renderer.
type CohortInput struct {
	Metrics  []string  `json:"metrics"`
	Subject  []float64 `json:"subject"`
	Averages []float64 `json:"averages"`
}

// CompareWithCohort classifies the subject's standing against the per-metric
// arithmetic mean of the cohort and assembles the narrative document plus a
// radar visualization reference. The cohort holds the latest score vector per
// distinct other student.
func CompareWithCohort(ctx context.Context, renderer Renderer, subject Scores, cohort []Scores) (Comparison, error) {
	averages := cohortAverages(cohort)

	var doc strings.Builder
	doc.WriteString("Below is a comparison of your scores against the class averages, with suggestions for each area:\n")

	deltas := make(map[string]float64, len(MetricNames))
	for _, name := range MetricNames {
		score, avg := subject.Metric(name), averages.Metric(name)
		deltas[name] = score - avg

		doc.WriteString(fmt.Sprintf("%s: ", metricLabels[name]))
		switch {
		case score > avg:
			doc.WriteString(fmt.Sprintf("your score of %.1f exceeds the class average of %.2f, indicating a strong performance in this area. ", score, avg))
		case score < avg:
			doc.WriteString(fmt.Sprintf("your score of %.1f is below the class average of %.2f; focusing on this area might help you improve. ", score, avg))
		default:
			doc.WriteString(fmt.Sprintf("your score of %.1f matches the class average, showing consistent performance with peers. ", score))
		}
		doc.WriteString(tierAdvice[name][scoreTier(score)])
		doc.WriteString("\n")
	}

	ref, err := renderer.Render(ctx, VizRadar, CohortInput{
		Metrics:  MetricNames,
		Subject:  metricValues(subject),
		Averages: metricValues(averages),
	})
	if err != nil {
		return Comparison{}, err
	}

	return Comparison{
		Kind:             ReferenceClassAverage,
		Deltas:           deltas,
		Feedback:         doc.String(),
		VisualizationRef: ref,
	}, nil
}

// ProgressInput is the grouped bar chart payload sent to the renderer.
type ProgressInput struct {
	Metrics []string  `json:"metrics"`
	First   []float64 `json:"first"`
	Second  []float64 `json:"second"`
}

// CompareProgress computes the signed per-metric delta between a student's two
// submissions (second - first) and assembles the narrative plus a bar chart
// visualization reference.
func CompareProgress(ctx context.Context, renderer Renderer, first, second Scores) (Comparison, error) {
	var doc strings.Builder
	doc.WriteString("Below is an analysis of your progress between the two submissions, with suggestions for each category:\n")

	deltas := make(map[string]float64, len(MetricNames))
	for _, name := range MetricNames {
		delta := second.Metric(name) - first.Metric(name)
		deltas[name] = delta

		doc.WriteString(fmt.Sprintf("%s: ", metricLabels[name]))
		switch {
		case delta > 0:
			doc.WriteString("there's a noticeable improvement since the last submission. ")
		case delta < 0:
			doc.WriteString("this has decreased since the last submission. ")
		default:
			doc.WriteString("this has remained consistent between submissions. ")
		}
		doc.WriteString(tierAdvice[name][scoreTier(second.Metric(name))])
		doc.WriteString("\n")
	}

	ref, err := renderer.Render(ctx, VizBar, ProgressInput{
		Metrics: MetricNames,
		First:   metricValues(first),
		Second:  metricValues(second),
	})
	if err != nil {
		return Comparison{}, err
	}

	return Comparison{
		Kind:             ReferencePriorSubmission,
		Deltas:           deltas,
		Feedback:         doc.String(),
		VisualizationRef: ref,
	}, nil
}

// cohortAverages computes the per-metric arithmetic mean across the cohort.
func cohortAverages(cohort []Scores) Scores {
	if len(cohort) == 0 {
		return Scores{}
	}
	var sum Scores
	for _, s := range cohort {
		sum.Originality += s.Originality
		sum.Coherence += s.Coherence
		sum.TopicRelevance += s.TopicRelevance
		sum.DepthOfAnalysis += s.DepthOfAnalysis
		sum.KeywordDensity += s.KeywordDensity
	}
	n := float64(len(cohort))
	return Scores{
		Originality:     sum.Originality / n,
		Coherence:       sum.Coherence / n,
		TopicRelevance:  sum.TopicRelevance / n,
		DepthOfAnalysis: sum.DepthOfAnalysis / n,
		KeywordDensity:  sum.KeywordDensity / n,
	}
}

func metricValues(s Scores) []float64 {
	out := make([]float64, 0, len(MetricNames))
	for _, name := range MetricNames {
		out = append(out, s.Metric(name))
	}
	return out
}
