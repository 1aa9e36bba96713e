package prompts

import (
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/models"
)

// ── Per-Operation Builders ──

// analysisShape is the JSON contract embedded in analysis prompts. It must
// stay in sync with models.AnalysisResult.
const analysisShape = `{
  "title": "the article's title",
  "summary": "a standard one-paragraph summary",
  "detailedSummary": "a thorough multi-paragraph summary",
  "simpleSummary": "a short summary in plain words a twelve-year-old could follow",
  "biasAnalysis": {
    "tone": {"finding": "...", "evidence": ["verbatim quote", "..."], "classification": "Positive" | "Negative" | "Neutral"},
    "favoritism": {"finding": "...", "evidence": ["..."]},
    "chargedLanguage": {"finding": "...", "evidence": ["..."]},
    "missingPerspectives": {"finding": "...", "evidence": ["..."]},
    "politicalLeaning": {"finding": "...", "evidence": ["..."]}
  }
}`

// Analyze builds the user prompt for analyzing one article in the target
// language. The language must already be normalized.
func Analyze(article *models.Article, language string) string {
	var b strings.Builder
	b.WriteString("Analyze the following news article.\n\n")
	fmt.Fprintf(&b, "CRITICAL: You MUST write every textual value in %s.\n", language)
	b.WriteString("The only exception is biasAnalysis.tone.classification: its value MUST be exactly one of Positive, Negative, or Neutral, in English, whatever the target language.\n\n")
	fmt.Fprintf(&b, "Return ONLY one JSON object with exactly this shape:\n%s\n\n", analysisShape)

	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	if article.SiteName != "" {
		fmt.Fprintf(&b, "Publication: %s\n", article.SiteName)
	}
	if article.Byline != "" {
		fmt.Fprintf(&b, "Byline: %s\n", article.Byline)
	}
	fmt.Fprintf(&b, "URL: %s\n", article.URL)
	if article.Truncated {
		b.WriteString("Note: the article text below was cut off at a length limit.\n")
	}
	fmt.Fprintf(&b, "\nArticle text:\n%s\n", article.TextContent)
	return b.String()
}

// TranslateResult builds the user prompt for translating a whole analysis
// result, pinning the tone classification to its English label.
func TranslateResult(resultJSON []byte, language string) string {
	return fmt.Sprintf(`Translate the values of this news-analysis JSON document into %s.

CRITICAL rules:
1. You MUST write every translated value in %s.
2. Keep every key and the whole structure exactly as given.
3. Do NOT translate or alter biasAnalysis.tone.classification; copy it through unchanged.
4. Translate evidence quotes in place, keeping their order.

Return ONLY the translated JSON object.

%s`, language, language, resultJSON)
}

// TranslateTexts builds the user prompt for a batch of short texts. The
// response contract is an object keyed by the zero-based input index, so a
// dropped entry is detectable.
func TranslateTexts(texts []string, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate each numbered text into %s.\n\n", language)
	fmt.Fprintf(&b, "CRITICAL: You MUST write every translation in %s.\n", language)
	b.WriteString(`Return ONLY one JSON object whose keys are the numbers below (as strings) and whose values are the translations. Include every number exactly once.
Example shape: {"0": "...", "1": "..."}

`)
	for i, text := range texts {
		fmt.Fprintf(&b, "%d: %s\n", i, text)
	}
	return b.String()
}

// Headlines builds the user prompt for fetching current category headlines.
func Headlines(category, language string, limit int) string {
	return fmt.Sprintf(`List the %d most significant current news headlines in the %q category.

CRITICAL: You MUST write every title in %s. Keep outlet names and URLs as they are.

Return ONLY a JSON array where every item has exactly this shape:
[{"title": "...", "source": "...", "url": "..."}]`, limit, category, language)
}
