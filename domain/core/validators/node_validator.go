package validators

import (
	"fmt"
	"unicode/utf8"

	"github.com/zhaizeyu/smart-mind/domain/config"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/pkg/errors"
)

// NodeValidator checks node text and coordinates against the configured limits
type NodeValidator struct {
	maxQuestionLength int
	maxAnswerLength   int
}

// NewNodeValidator creates a validator with the default limits
func NewNodeValidator() *NodeValidator {
	return NewNodeValidatorWithConfig(config.DefaultDomainConfig())
}

// NewNodeValidatorWithConfig creates a validator from a domain config
func NewNodeValidatorWithConfig(cfg *config.DomainConfig) *NodeValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &NodeValidator{
		maxQuestionLength: cfg.MaxQuestionLength,
		maxAnswerLength:   cfg.MaxAnswerLength,
	}
}

// ValidateFields validates the optional fields of an add or update.
// Nil fields are skipped.
func (v *NodeValidator) ValidateFields(question, answer *string, position *valueobjects.Position) error {
	errs := errors.NewValidationErrors()
	v.checkFields(errs, "", question, answer, position)
	return errs.Err()
}

// ValidateForest validates every node of a snapshot forest. Structural
// problems such as blank or duplicate ids are not errors here; the
// aggregate drops those nodes on import.
func (v *NodeValidator) ValidateForest(forest []aggregates.NodeSnapshot) error {
	errs := errors.NewValidationErrors()
	var walk func(nodes []aggregates.NodeSnapshot, path string)
	walk = func(nodes []aggregates.NodeSnapshot, path string) {
		for i := range nodes {
			n := &nodes[i]
			p := fmt.Sprintf("%s[%d]", path, i)
			v.checkFields(errs, p+".", &n.Question, n.Answer, &n.Position)
			walk(n.Children, p+".children")
		}
	}
	walk(forest, "nodes")
	return errs.Err()
}

func (v *NodeValidator) checkFields(errs *errors.ValidationErrors, prefix string, question, answer *string, position *valueobjects.Position) {
	if question != nil {
		if n := utf8.RuneCountInString(*question); n > v.maxQuestionLength {
			errs.AddCode(prefix+"question", errors.CodeQuestionTooLong,
				fmt.Sprintf("question exceeds maximum length of %d characters", v.maxQuestionLength))
		}
	}
	if answer != nil {
		if n := utf8.RuneCountInString(*answer); n > v.maxAnswerLength {
			errs.AddCode(prefix+"answer", errors.CodeAnswerTooLong,
				fmt.Sprintf("answer exceeds maximum length of %d characters", v.maxAnswerLength))
		}
	}
	if position != nil {
		if err := position.Validate(); err != nil {
			errs.AddCode(prefix+"position", errors.CodeInvalidPosition, err.Error())
		}
	}
}
