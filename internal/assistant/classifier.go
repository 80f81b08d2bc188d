// Package assistant implements the research agents that answer questions
// about papers, suggest future research directions, and summarize a year's
// findings using an LLM.
package assistant

import "strings"

// QuestionClass tags a question as asking about the paper's text or about
// its visual content (images, charts, figures).
type QuestionClass int

const (
	// TextQuestion is answered from the paper's text.
	TextQuestion QuestionClass = iota
	// ImageQuestion asks about visual content the text context cannot show.
	ImageQuestion
)

// String returns a stable label for the question class.
func (c QuestionClass) String() string {
	if c == ImageQuestion {
		return "image"
	}
	return "text"
}

// QuestionClassifier decides how a question should be routed.
type QuestionClassifier interface {
	Classify(question string) QuestionClass
}

// KeywordClassifier classifies a question as visual when it mentions any of
// a fixed set of keywords.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a classifier with the default visual-content
// keywords.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		keywords: []string{"image", "chart", "graph", "figure"},
	}
}

// Classify returns ImageQuestion when the question mentions visual content.
func (c *KeywordClassifier) Classify(question string) QuestionClass {
	lower := strings.ToLower(question)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return ImageQuestion
		}
	}
	return TextQuestion
}
