// Package models defines the shared data types for NewsLens: analysis
// results, bias breakdowns, headlines, and history entries. The JSON tags
// are the wire contract both for the HTTP API and for the shape requested
// from the LLM, so they must not change casually.
package models

import "strings"

// Classification is the fixed-vocabulary tone label. It is always one of
// the three English labels below and is never translated, regardless of
// the language the rest of the analysis is written in.
type Classification string

const (
	TonePositive Classification = "Positive"
	ToneNegative Classification = "Negative"
	ToneNeutral  Classification = "Neutral"
)

// Classifications lists the allowed tone labels in display order.
var Classifications = []Classification{TonePositive, ToneNegative, ToneNeutral}

// Valid reports whether c is exactly one of the allowed labels.
func (c Classification) Valid() bool {
	switch c {
	case TonePositive, ToneNegative, ToneNeutral:
		return true
	}
	return false
}

// ParseClassification canonicalizes a tone label, tolerating surrounding
// whitespace and case differences ("positive" → Positive). It returns
// false for anything outside the fixed vocabulary.
func ParseClassification(s string) (Classification, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Classifications {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// BiasPoint is a single bias finding with the quoted evidence backing it.
// Evidence strings are verbatim quotes from the article, in the order the
// model reported them.
type BiasPoint struct {
	Finding  string   `json:"finding"`
	Evidence []string `json:"evidence"`
}

// TonePoint is a BiasPoint plus the fixed-vocabulary tone classification.
type TonePoint struct {
	BiasPoint
	Classification Classification `json:"classification"`
}

// BiasAnalysis is the five-field structured bias judgment requested from
// the model for every analyzed article.
type BiasAnalysis struct {
	Tone                TonePoint `json:"tone"`
	Favoritism          BiasPoint `json:"favoritism"`
	ChargedLanguage     BiasPoint `json:"chargedLanguage"`
	MissingPerspectives BiasPoint `json:"missingPerspectives"`
	PoliticalLeaning    BiasPoint `json:"politicalLeaning"`
}

// AnalysisResult is the full structured output for one article: the title,
// three summary variants, and the bias analysis.
type AnalysisResult struct {
	Title           string       `json:"title"`
	Summary         string       `json:"summary"`
	DetailedSummary string       `json:"detailedSummary"`
	SimpleSummary   string       `json:"simpleSummary"`
	BiasAnalysis    BiasAnalysis `json:"biasAnalysis"`
}

// Summaries returns the three summary variants keyed by their JSON field
// names. Useful for iterating over the variants without reflection.
func (r *AnalysisResult) Summaries() map[string]string {
	return map[string]string{
		"summary":         r.Summary,
		"detailedSummary": r.DetailedSummary,
		"simpleSummary":   r.SimpleSummary,
	}
}
