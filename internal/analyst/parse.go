package analyst

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/newslens/newslens/pkg/models"
)

// requiredResultKeys are the top-level keys an analysis response must carry.
var requiredResultKeys = []string{"title", "summary", "detailedSummary", "simpleSummary", "biasAnalysis"}

// requiredBiasKeys are the keys the biasAnalysis object must carry.
var requiredBiasKeys = []string{"tone", "favoritism", "chargedLanguage", "missingPerspectives", "politicalLeaning"}

// CleanJSONResponse strips markdown fences and surrounding prose from a
// model response, leaving the first JSON document. Providers with native
// schema enforcement return clean JSON already; the rest occasionally fence
// or preface it.
func CleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around the JSON.
	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")
	switch {
	case arrStart >= 0 && (objStart < 0 || arrStart < objStart):
		if end := strings.LastIndex(content, "]"); end > arrStart {
			content = content[arrStart : end+1]
		}
	case objStart >= 0:
		if end := strings.LastIndex(content, "}"); end > objStart {
			content = content[objStart : end+1]
		}
	}
	return content
}

// DecodeAnalysisResult normalizes an analysis response: fence strip, decode,
// required-key check, and tone-classification validation. It never returns a
// partial result.
func DecodeAnalysisResult(content string) (*models.AnalysisResult, error) {
	result, err := decodeAnalysisStructure(content)
	if err != nil {
		return nil, err
	}

	cls, ok := models.ParseClassification(string(result.BiasAnalysis.Tone.Classification))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadClassification, result.BiasAnalysis.Tone.Classification)
	}
	result.BiasAnalysis.Tone.Classification = cls
	return result, nil
}

// decodeAnalysisStructure decodes and checks keys without judging the
// classification value. Translate pins the classification itself, so it
// skips that check.
func decodeAnalysisStructure(content string) (*models.AnalysisResult, error) {
	cleaned := CleanJSONResponse(content)

	// Key presence is checked on the raw document: after unmarshalling into
	// the struct, an absent key and an empty value look the same.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, key := range requiredResultKeys {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrMalformedResponse, key)
		}
	}
	var bias map[string]json.RawMessage
	if err := json.Unmarshal(raw["biasAnalysis"], &bias); err != nil {
		return nil, fmt.Errorf("%w: biasAnalysis: %v", ErrMalformedResponse, err)
	}
	for _, key := range requiredBiasKeys {
		if _, ok := bias[key]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrMalformedResponse, "biasAnalysis."+key)
		}
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &result, nil
}

// DecodeTranslationMap decodes a batch-translation response keyed by input
// index. Stray keys are tolerated and dropped.
func DecodeTranslationMap(content string) (map[int]string, error) {
	cleaned := CleanJSONResponse(content)

	var raw map[string]string
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || idx < 0 {
			continue
		}
		out[idx] = v
	}
	return out, nil
}

// DecodeHeadlines decodes a fetchNews response, accepting either a bare
// array or an object wrapping it under "headlines". Items without a title
// are dropped.
func DecodeHeadlines(content string) ([]models.NewsHeadline, error) {
	cleaned := CleanJSONResponse(content)

	var headlines []models.NewsHeadline
	if err := json.Unmarshal([]byte(cleaned), &headlines); err == nil {
		return pruneHeadlines(headlines), nil
	}

	var wrapped struct {
		Headlines []models.NewsHeadline `json:"headlines"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return pruneHeadlines(wrapped.Headlines), nil
}

func pruneHeadlines(in []models.NewsHeadline) []models.NewsHeadline {
	out := make([]models.NewsHeadline, 0, len(in))
	for _, h := range in {
		if strings.TrimSpace(h.Title) == "" {
			continue
		}
		out = append(out, h)
	}
	return out
}
