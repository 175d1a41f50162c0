// Package rules implements a small ordered Boolean inference engine.
//
// A rule set is an ordered slice of named predicates. Evaluation walks the
// slice once, in declaration order, and records each predicate's result in a
// flat fact map. A predicate sees the results of every rule declared before
// it and nothing after it. Ordering is the only dependency mechanism: there is
// no graph, no solver and no caching between evaluations.
//
// Facts that are not yet known read as false. An optional strict mode turns
// such reads into errors, which is useful in tests to catch catalog
// reordering mistakes.
package rules

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrFactNotYetEvaluated is returned in strict mode when a predicate reads a
// fact that has not been evaluated yet.
var ErrFactNotYetEvaluated = errors.New("fact read before it was evaluated")

// Facts maps fact names to their evaluated values.
type Facts map[string]bool

// Get returns the value of name, or false when the fact is absent.
func (f Facts) Get(name string) bool {
	return f[name]
}

// Names returns the fact names in sorted order.
func (f Facts) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Predicate computes one fact from the facts evaluated so far and a context.
type Predicate[C any] func(known Known, c C) (bool, error)

// Rule is a named predicate.
type Rule[C any] struct {
	Name      string
	Predicate Predicate[C]
}

// Fact builds a rule from a predicate that cannot fail.
func Fact[C any](name string, fn func(known Known, c C) bool) Rule[C] {
	return Rule[C]{
		Name: name,
		Predicate: func(known Known, c C) (bool, error) {
			return fn(known, c), nil
		},
	}
}

// FactE builds a rule from a predicate that may return an error.
func FactE[C any](name string, fn func(known Known, c C) (bool, error)) Rule[C] {
	return Rule[C]{Name: name, Predicate: fn}
}

// Rules is an ordered rule set. Order is significant.
type Rules[C any] []Rule[C]

// Names returns the rule names in declaration order.
func (r Rules[C]) Names() []string {
	names := make([]string, 0, len(r))
	for _, rule := range r {
		names = append(names, rule.Name)
	}
	return names
}

// Validate reports empty names, nil predicates and duplicate names.
func (r Rules[C]) Validate() error {
	var errs []error
	seen := make(map[string]int, len(r))

	for i, rule := range r {
		if rule.Name == "" {
			errs = append(errs, fmt.Errorf("rule %d: empty name", i))
		}
		if rule.Predicate == nil {
			errs = append(errs, fmt.Errorf("rule %d (%s): nil predicate", i, rule.Name))
		}
		if prev, ok := seen[rule.Name]; ok && rule.Name != "" {
			errs = append(errs, fmt.Errorf("rule %d: duplicate name %q (first declared at %d)", i, rule.Name, prev))
			continue
		}
		seen[rule.Name] = i
	}

	return errors.Join(errs...)
}

// With returns a new rule set with extra appended after r.
func (r Rules[C]) With(extra ...Rule[C]) Rules[C] {
	out := make(Rules[C], 0, len(r)+len(extra))
	out = append(out, r...)
	return append(out, extra...)
}

// EvaluationError reports a predicate that failed and aborted evaluation.
type EvaluationError struct {
	Rule  string
	Index int
	Err   error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %d (%s) failed: %v", e.Index, e.Rule, e.Err)
}

// Unwrap returns the underlying predicate error.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrictOrdering makes reads of not-yet-evaluated facts fail the
// evaluation instead of returning false.
func WithStrictOrdering() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Engine evaluates a fixed rule set against contexts of type C.
type Engine[C any] struct {
	rules  Rules[C]
	strict bool
}

// New creates an engine over a copy of rules.
func New[C any](rules Rules[C], opts ...Option) *Engine[C] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[C]{
		rules:  slices.Clone(rules),
		strict: o.strict,
	}
}

// Rules returns the engine's rule set.
func (e *Engine[C]) Rules() Rules[C] {
	return slices.Clone(e.rules)
}

// Evaluate runs every rule once, in order, and returns the resulting facts.
// The first failing predicate aborts evaluation and its error is returned
// wrapped in an *EvaluationError; partial results are discarded.
//
// Predicates are pure, so a pass always runs to completion and ctx is not
// consulted. It is accepted so callers can thread tracing through.
func (e *Engine[C]) Evaluate(_ context.Context, c C) (Facts, error) {
	facts := make(Facts, len(e.rules))

	for i, rule := range e.rules {
		// Existing value wins.
		if _, exists := facts[rule.Name]; exists {
			continue
		}

		value, err := e.apply(rule, facts, c)
		if err != nil {
			return nil, &EvaluationError{Rule: rule.Name, Index: i, Err: err}
		}
		facts[rule.Name] = value
	}

	return facts, nil
}

func (e *Engine[C]) apply(rule Rule[C], facts Facts, c C) (value bool, err error) {
	if rule.Predicate == nil {
		return false, errors.New("nil predicate")
	}

	known := Known{facts: facts, strict: e.strict}

	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(strictReadPanic); ok {
				err = fmt.Errorf("%w: %s", ErrFactNotYetEvaluated, se.name)
				return
			}
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()

	return rule.Predicate(known, c)
}

// Known is the read-only view of facts evaluated so far.
type Known struct {
	facts  Facts
	strict bool
}

// strictReadPanic unwinds a predicate that read an unknown fact in strict mode.
type strictReadPanic struct {
	name string
}

// Get returns the value of an earlier fact. Unknown facts read as false
// unless the engine runs in strict mode.
func (k Known) Get(name string) bool {
	v, ok := k.facts[name]
	if !ok && k.strict {
		panic(strictReadPanic{name: name})
	}
	return v
}

// Has reports whether name has been evaluated.
func (k Known) Has(name string) bool {
	_, ok := k.facts[name]
	return ok
}

// Snapshot returns a copy of the facts evaluated so far.
func (k Known) Snapshot() Facts {
	return maps.Clone(k.facts)
}

// KnownFrom wraps an existing fact map, mainly for testing predicates in
// isolation.
func KnownFrom(facts Facts) Known {
	return Known{facts: facts}
}
