package extract

import (
	"context"
	"strings"
)

// complianceVocabulary maps lower-cased tokens to entity categories. Small
// on purpose: the keyword extractor exists so the CLI works without an OCR
// or NLP backend wired in, not to compete with one.
var complianceVocabulary = map[string]string{
	"audit":       "Process",
	"safety":      "Topic",
	"quality":     "Topic",
	"procedure":   "DocumentType",
	"manual":      "DocumentType",
	"policy":      "DocumentType",
	"report":      "DocumentType",
	"checklist":   "DocumentType",
	"iso":         "Standard",
	"iso9001":     "Standard",
	"ncr":         "Process",
	"capa":        "Process",
	"kpi":         "Process",
	"supplier":    "Party",
	"production":  "Party",
	"purchasing":  "Party",
	"maintenance": "Process",
	"calibration": "Process",
	"training":    "Process",
	"inspection":  "Process",
}

// KeywordExtractor is the built-in ContentExtractor: no optical text
// recognition, and entity extraction by vocabulary lookup over whitespace
// tokens.
type KeywordExtractor struct{}

// ExtractText returns no text; there is no OCR backend built in.
func (KeywordExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "", nil
}

// ExtractEntities returns one entity per distinct vocabulary token found in
// text, in order of first appearance.
func (KeywordExtractor) ExtractEntities(ctx context.Context, text string) ([]Entity, error) {
	var entities []Entity
	seen := make(map[string]bool)
	for _, token := range strings.Fields(text) {
		token = strings.ToLower(strings.Trim(token, ".,;:!?()[]\"'"))
		category, ok := complianceVocabulary[token]
		if !ok || seen[token] {
			continue
		}
		seen[token] = true
		entities = append(entities, Entity{Text: token, Category: category})
	}
	return entities, nil
}
