// Package alert evaluates declarative rules over stored documents to
// produce per-record alert lists.
//
// A rule is a condition/action pair: every condition in its when-list must
// hold for the rule's message to fire. Conditions reference a fixed fact set
// (the document's status and next review date), which keeps evaluation pure
// and total; new rules are added to the config without changing callers.
package alert

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aegisaudit/aegis/internal/record"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Condition operators.
const (
	// OpEqual holds when the fact equals Value.
	OpEqual = "equal"
	// OpBeforeNow holds when the date fact is before evaluation time.
	OpBeforeNow = "before-now"
)

// Document fact fields addressable by conditions.
const (
	FieldStatus         = "status"
	FieldNextReviewDate = "nextReviewDate"
)

// Condition is one declarative check against a document fact.
type Condition struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value string `yaml:"value,omitempty"`
}

// Rule fires its message when every condition holds.
type Rule struct {
	Name    string      `yaml:"name"`
	Message string      `yaml:"message"`
	When    []Condition `yaml:"when"`
}

type config struct {
	Rules []Rule `yaml:"rules"`
}

// Engine evaluates a fixed rule set over documents. Evaluation has no side
// effects and may run on every fetch of the document collection.
type Engine struct {
	rules []Rule
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used by date conditions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRules replaces the base rule config.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// New builds an engine with the base rule configuration: the single
// published-and-overdue review rule. Options may swap in additional rules
// or a fixed clock.
func New(opts ...Option) (*Engine, error) {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		return nil, err
	}
	e := &Engine{rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if err := validate(e.rules); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseRules reads a YAML rule config.
func ParseRules(data []byte) ([]Rule, error) {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("alert: parse rules: %w", err)
	}
	if err := validate(cfg.Rules); err != nil {
		return nil, err
	}
	return cfg.Rules, nil
}

// validate rejects unknown fields and operators up front so evaluation is
// total.
func validate(rules []Rule) error {
	for _, r := range rules {
		if r.Name == "" || r.Message == "" {
			return fmt.Errorf("alert: rule must have name and message")
		}
		if len(r.When) == 0 {
			return fmt.Errorf("alert: rule %q has no conditions", r.Name)
		}
		for _, c := range r.When {
			switch c.Field {
			case FieldStatus:
				if c.Op != OpEqual {
					return fmt.Errorf("alert: rule %q: field %q supports only %q", r.Name, c.Field, OpEqual)
				}
			case FieldNextReviewDate:
				if c.Op != OpBeforeNow {
					return fmt.Errorf("alert: rule %q: field %q supports only %q", r.Name, c.Field, OpBeforeNow)
				}
			default:
				return fmt.Errorf("alert: rule %q: unknown field %q", r.Name, c.Field)
			}
		}
	}
	return nil
}

// Evaluate returns the messages of every rule whose conditions all hold for
// doc.
func (e *Engine) Evaluate(doc record.Document) []string {
	var alerts []string
	now := e.now()
	for _, r := range e.rules {
		if e.matches(r, doc, now) {
			alerts = append(alerts, r.Message)
		}
	}
	return alerts
}

// EvaluateAll evaluates every document once and keys the results by
// document id for the display layer. Documents with no alerts are omitted.
func (e *Engine) EvaluateAll(docs []record.Document) map[int64][]string {
	out := make(map[int64][]string)
	for _, doc := range docs {
		if alerts := e.Evaluate(doc); len(alerts) > 0 {
			out[doc.ID] = alerts
		}
	}
	return out
}

func (e *Engine) matches(r Rule, doc record.Document, now time.Time) bool {
	for _, c := range r.When {
		if !holds(c, doc, now) {
			return false
		}
	}
	return true
}

func holds(c Condition, doc record.Document, now time.Time) bool {
	switch c.Field {
	case FieldStatus:
		return string(doc.Status) == c.Value
	case FieldNextReviewDate:
		return doc.NextReviewDate.Before(now)
	default:
		return false
	}
}
