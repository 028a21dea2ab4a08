package valueobjects

import (
	"strings"
	"unicode/utf8"
)

// NodeContent is the question/answer pair carried by a node. The answer is
// optional and distinct from an empty answer.
type NodeContent struct {
	question  string
	answer    string
	hasAnswer bool
}

// NewNodeContent creates content from a question and an optional answer
func NewNodeContent(question string, answer *string) NodeContent {
	c := NodeContent{question: question}
	if answer != nil {
		c.answer = *answer
		c.hasAnswer = true
	}
	return c
}

// Question returns the question text
func (c NodeContent) Question() string {
	return c.question
}

// Answer returns the answer and whether one is set
func (c NodeContent) Answer() (string, bool) {
	return c.answer, c.hasAnswer
}

// AnswerPtr returns the answer as a pointer, nil when unset
func (c NodeContent) AnswerPtr() *string {
	if !c.hasAnswer {
		return nil
	}
	a := c.answer
	return &a
}

// HasAnswer reports whether an answer is set
func (c NodeContent) HasAnswer() bool {
	return c.hasAnswer
}

// WithQuestion returns a copy with the question replaced
func (c NodeContent) WithQuestion(question string) NodeContent {
	c.question = question
	return c
}

// WithAnswer returns a copy with the answer set
func (c NodeContent) WithAnswer(answer string) NodeContent {
	c.answer = answer
	c.hasAnswer = true
	return c
}

// Equals checks if two contents are equal
func (c NodeContent) Equals(other NodeContent) bool {
	return c.question == other.question &&
		c.hasAnswer == other.hasAnswer &&
		c.answer == other.answer
}

// Summary returns the question truncated to maxLength runes
func (c NodeContent) Summary(maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	q := strings.Join(strings.Fields(c.question), " ")
	if utf8.RuneCountInString(q) <= maxLength {
		return q
	}
	if maxLength <= 3 {
		return string([]rune(q)[:maxLength])
	}

	runes := []rune(q)
	return string(runes[:maxLength-3]) + "..."
}
