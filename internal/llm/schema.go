package llm

import (
	"encoding/json"
	"sort"
	"strconv"
)

// JSONSchema represents a JSON Schema definition used to constrain model
// output on providers that support structured responses.
type JSONSchema struct {
	Type                 string                 `json:"type"`
	Description          string                 `json:"description,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// ObjectSchema creates a JSON Schema for an object with the given properties.
// Strict providers require every property to be listed as required and
// additionalProperties to be false, so ObjectSchema sets both.
func ObjectSchema(desc string, props map[string]*JSONSchema) *JSONSchema {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	sort.Strings(required)
	no := false
	return &JSONSchema{
		Type:                 "object",
		Description:          desc,
		Properties:           props,
		Required:             required,
		AdditionalProperties: &no,
	}
}

// StringProp creates a JSON Schema for a string property.
func StringProp(desc string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: desc}
}

// EnumProp creates a JSON Schema for a string enum property.
func EnumProp(desc string, values ...string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: desc, Enum: values}
}

// ArrayProp creates a JSON Schema for an array property.
func ArrayProp(desc string, items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "array", Description: desc, Items: items}
}

// AsMap converts the schema to the generic map form most SDKs accept.
func (s *JSONSchema) AsMap() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// AsJSON returns the schema as raw JSON, for SDKs that take the schema
// verbatim (e.g. Ollama's format field).
func (s *JSONSchema) AsJSON() json.RawMessage {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return data
}

// biasPointSchema is the schema for a single bias finding.
func biasPointSchema(desc string) *JSONSchema {
	return ObjectSchema(desc, map[string]*JSONSchema{
		"finding":  StringProp("The bias finding, one or two sentences."),
		"evidence": ArrayProp("Verbatim quotes from the article supporting the finding.", StringProp("A quoted passage.")),
	})
}

// AnalysisResultSchema describes the full article-analysis response shape.
// It mirrors models.AnalysisResult field for field; the classification enum
// is pinned to the three English labels.
func AnalysisResultSchema() *JSONSchema {
	tone := biasPointSchema("Overall tone of the article.")
	tone.Properties["classification"] = EnumProp(
		"Tone label. Always one of the English labels, never translated.",
		"Positive", "Negative", "Neutral",
	)
	tone.Required = append(tone.Required, "classification")
	sort.Strings(tone.Required)

	return ObjectSchema("Structured news article analysis.", map[string]*JSONSchema{
		"title":           StringProp("The article's title."),
		"summary":         StringProp("A concise neutral summary, 2-4 sentences."),
		"detailedSummary": StringProp("A thorough summary covering all key points."),
		"simpleSummary":   StringProp("A plain-language summary a 12-year-old could follow."),
		"biasAnalysis": ObjectSchema("Five-field bias breakdown.", map[string]*JSONSchema{
			"tone":                tone,
			"favoritism":          biasPointSchema("Whether the article favors a side."),
			"chargedLanguage":     biasPointSchema("Emotionally loaded wording."),
			"missingPerspectives": biasPointSchema("Voices or angles the article omits."),
			"politicalLeaning":    biasPointSchema("Apparent political leaning."),
		}),
	})
}

// HeadlinesSchema describes the fetchNews response shape.
func HeadlinesSchema() *JSONSchema {
	return ObjectSchema("A list of current news headlines.", map[string]*JSONSchema{
		"headlines": ArrayProp("The headlines.", ObjectSchema("One headline.", map[string]*JSONSchema{
			"title":  StringProp("Headline text."),
			"source": StringProp("Publication name."),
			"url":    StringProp("Link to the story."),
		})),
	})
}

// TranslationMapSchema describes the batch-translation response shape for n
// texts: an object keyed by the zero-based input index. Strict providers
// reject free-form keys, so every index is spelled out.
func TranslationMapSchema(n int) *JSONSchema {
	props := make(map[string]*JSONSchema, n)
	for i := 0; i < n; i++ {
		idx := strconv.Itoa(i)
		props[idx] = StringProp("Translation of text " + idx + ".")
	}
	return ObjectSchema("Translations keyed by input index.", props)
}
