package analyst

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/newslens/newslens/pkg/models"
)

const validAnalysisJSON = `{
  "title": "Council Approves Riverfront Housing Plan",
  "summary": "The city council approved a 400-unit riverfront housing development after months of debate.",
  "detailedSummary": "After a seven to two vote, the council cleared the way for a 400-unit development along the river. Supporters cited the housing shortage; opponents raised flooding and traffic concerns that the coverage gives comparatively little room.",
  "simpleSummary": "The city said yes to new homes by the river.",
  "biasAnalysis": {
    "tone": {
      "finding": "Generally favorable framing of the approval.",
      "evidence": ["a long-awaited win for housing advocates"],
      "classification": "Positive"
    },
    "favoritism": {
      "finding": "Developer representatives are quoted twice as often as residents.",
      "evidence": ["a spokesperson for the developer said"]
    },
    "chargedLanguage": {
      "finding": "Opposition is described with dismissive wording.",
      "evidence": ["a vocal minority of holdouts"]
    },
    "missingPerspectives": {
      "finding": "No environmental assessment voices are included.",
      "evidence": []
    },
    "politicalLeaning": {
      "finding": "No clear partisan slant in the coverage.",
      "evidence": []
    }
  }
}`

// dropKey removes one key from a JSON document, descending into nested
// objects along path.
func dropKey(t *testing.T, doc string, path ...string) string {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	cur := m
	for i, p := range path {
		if i == len(path)-1 {
			delete(cur, p)
			break
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			t.Fatalf("path %v: %q is not an object", path, p)
		}
		cur = next
	}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(out)
}

// ════════════════════════════════════════════════════════════════════════
// CleanJSONResponse
// ════════════════════════════════════════════════════════════════════════

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"clean object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around object", `Here is the analysis: {"a": 1} Hope that helps!`, `{"a": 1}`},
		{"clean array", `[{"a": 1}]`, `[{"a": 1}]`},
		{"fenced array", "```json\n[1, 2]\n```", `[1, 2]`},
		{"prose around array", `The headlines: [1, 2] as requested.`, `[1, 2]`},
		{"array before object", `[{"a": 1}] trailing {"b": 2}`, `[{"a": 1}]`},
		{"object containing array", `{"items": [1, 2]}`, `{"items": [1, 2]}`},
		{"no json at all", "sorry, I cannot do that", "sorry, I cannot do that"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONResponse(tt.content); got != tt.want {
				t.Errorf("CleanJSONResponse(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════════
// DecodeAnalysisResult
// ════════════════════════════════════════════════════════════════════════

func TestDecodeAnalysisResultValid(t *testing.T) {
	result, err := DecodeAnalysisResult(validAnalysisJSON)
	if err != nil {
		t.Fatalf("DecodeAnalysisResult() error: %v", err)
	}
	if result.Title != "Council Approves Riverfront Housing Plan" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.Summary == "" || result.DetailedSummary == "" || result.SimpleSummary == "" {
		t.Error("expected all three summaries to be populated")
	}
	if result.BiasAnalysis.Tone.Classification != models.TonePositive {
		t.Errorf("Classification = %q, want %q", result.BiasAnalysis.Tone.Classification, models.TonePositive)
	}
	if len(result.BiasAnalysis.Tone.Evidence) != 1 {
		t.Errorf("Tone.Evidence count = %d, want 1", len(result.BiasAnalysis.Tone.Evidence))
	}
	if result.BiasAnalysis.Favoritism.Finding == "" {
		t.Error("expected favoritism finding to survive decoding")
	}
}

func TestDecodeAnalysisResultFenced(t *testing.T) {
	fenced := "```json\n" + validAnalysisJSON + "\n```"
	result, err := DecodeAnalysisResult(fenced)
	if err != nil {
		t.Fatalf("DecodeAnalysisResult() error: %v", err)
	}
	if result.Title == "" {
		t.Error("expected title from fenced document")
	}
}

func TestDecodeAnalysisResultCanonicalizesClassification(t *testing.T) {
	doc := strings.Replace(validAnalysisJSON, `"Positive"`, `"positive"`, 1)
	result, err := DecodeAnalysisResult(doc)
	if err != nil {
		t.Fatalf("DecodeAnalysisResult() error: %v", err)
	}
	if result.BiasAnalysis.Tone.Classification != models.TonePositive {
		t.Errorf("Classification = %q, want canonical %q", result.BiasAnalysis.Tone.Classification, models.TonePositive)
	}
}

func TestDecodeAnalysisResultMissingKeys(t *testing.T) {
	tests := []struct {
		name string
		path []string
	}{
		{"missing title", []string{"title"}},
		{"missing summary", []string{"summary"}},
		{"missing detailedSummary", []string{"detailedSummary"}},
		{"missing simpleSummary", []string{"simpleSummary"}},
		{"missing biasAnalysis", []string{"biasAnalysis"}},
		{"missing tone", []string{"biasAnalysis", "tone"}},
		{"missing favoritism", []string{"biasAnalysis", "favoritism"}},
		{"missing chargedLanguage", []string{"biasAnalysis", "chargedLanguage"}},
		{"missing missingPerspectives", []string{"biasAnalysis", "missingPerspectives"}},
		{"missing politicalLeaning", []string{"biasAnalysis", "politicalLeaning"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := dropKey(t, validAnalysisJSON, tt.path...)
			if _, err := DecodeAnalysisResult(doc); !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestDecodeAnalysisResultBadClassification(t *testing.T) {
	doc := strings.Replace(validAnalysisJSON, `"Positive"`, `"Hopeful"`, 1)
	_, err := DecodeAnalysisResult(doc)
	if !errors.Is(err, ErrBadClassification) {
		t.Errorf("error = %v, want ErrBadClassification", err)
	}
}

func TestDecodeAnalysisResultGarbage(t *testing.T) {
	for _, content := range []string{"", "not json at all", `[1, 2, 3]`} {
		if _, err := DecodeAnalysisResult(content); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("DecodeAnalysisResult(%q) error = %v, want ErrMalformedResponse", content, err)
		}
	}
}

// ════════════════════════════════════════════════════════════════════════
// DecodeTranslationMap
// ════════════════════════════════════════════════════════════════════════

func TestDecodeTranslationMap(t *testing.T) {
	got, err := DecodeTranslationMap("```json\n" + `{"0": "Hola", "1": "Mundo", "note": "ignored", "-3": "ignored"}` + "\n```")
	if err != nil {
		t.Fatalf("DecodeTranslationMap() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (stray keys dropped)", len(got))
	}
	if got[0] != "Hola" || got[1] != "Mundo" {
		t.Errorf("map = %v", got)
	}
}

func TestDecodeTranslationMapMalformed(t *testing.T) {
	if _, err := DecodeTranslationMap(`["Hola", "Mundo"]`); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

// ════════════════════════════════════════════════════════════════════════
// DecodeHeadlines
// ════════════════════════════════════════════════════════════════════════

func TestDecodeHeadlinesBareArray(t *testing.T) {
	content := `[
	  {"title": "Markets rally on rate cut hopes", "source": "Example Wire", "url": "https://example.com/markets"},
	  {"title": "New battery design doubles range", "source": "Tech Daily", "url": "https://example.com/battery"}
	]`
	got, err := DecodeHeadlines(content)
	if err != nil {
		t.Fatalf("DecodeHeadlines() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "Markets rally on rate cut hopes" || got[0].Source != "Example Wire" {
		t.Errorf("first headline = %+v", got[0])
	}
}

func TestDecodeHeadlinesWrapped(t *testing.T) {
	content := `{"headlines": [{"title": "Markets rally", "source": "Example Wire", "url": "https://example.com/a"}]}`
	got, err := DecodeHeadlines(content)
	if err != nil {
		t.Fatalf("DecodeHeadlines() error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Markets rally" {
		t.Errorf("headlines = %+v", got)
	}
}

func TestDecodeHeadlinesPrunesUntitled(t *testing.T) {
	content := `[
	  {"title": "Kept", "source": "A", "url": "https://example.com/a"},
	  {"title": "   ", "source": "B", "url": "https://example.com/b"},
	  {"title": "", "source": "C", "url": "https://example.com/c"}
	]`
	got, err := DecodeHeadlines(content)
	if err != nil {
		t.Fatalf("DecodeHeadlines() error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Kept" {
		t.Errorf("headlines = %+v, want only the titled entry", got)
	}
}

func TestDecodeHeadlinesMalformed(t *testing.T) {
	if _, err := DecodeHeadlines("no headlines today"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}
