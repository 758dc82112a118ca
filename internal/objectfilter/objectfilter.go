// Package objectfilter provides a generic predicate filter with match-all
// and match-any semantics and support for named nested subfilters.
package objectfilter

import (
	"fmt"
	"reflect"
	"slices"
)

// MatchType determines how a filter combines its rules and subfilters.
type MatchType int

const (
	// MatchAll requires every rule and subfilter to match.
	MatchAll MatchType = iota
	// MatchAny requires at least one rule or subfilter to match.
	MatchAny
)

// Rule is a predicate over filtered objects. Static arguments registered
// with the rule are passed on each evaluation.
type Rule[T any] func(item T, args ...any) bool

type filterRule[T any] struct {
	id   int
	fn   Rule[T]
	args []any
}

// Filter matches objects against a set of rules and named subfilters.
// An empty filter matches every object.
type Filter[T any] struct {
	matchType  MatchType
	rules      []filterRule[T]
	subfilters map[string]*Filter[T]
	subOrder   []string
	nextRuleID int
}

// New creates an empty filter with the given match type.
func New[T any](matchType MatchType) *Filter[T] {
	return &Filter[T]{
		matchType:  matchType,
		subfilters: make(map[string]*Filter[T]),
	}
}

// MatchType returns the filter's match type.
func (f *Filter[T]) MatchType() MatchType {
	return f.matchType
}

// Len returns the number of rules and subfilters.
func (f *Filter[T]) Len() int {
	return len(f.rules) + len(f.subfilters)
}

// AddRule adds a rule along with static arguments passed to it on every
// evaluation and returns an ID usable with RemoveRule. The same function
// may be added multiple times, typically with different arguments.
func (f *Filter[T]) AddRule(fn Rule[T], args ...any) int {
	f.nextRuleID++
	f.rules = append(f.rules, filterRule[T]{id: f.nextRuleID, fn: fn, args: args})
	return f.nextRuleID
}

// RemoveRule removes the rule with the given ID.
func (f *Filter[T]) RemoveRule(ruleID int) error {
	for i, rule := range f.rules {
		if rule.id == ruleID {
			f.rules = slices.Delete(f.rules, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("rule with ID %d not found in filter", ruleID)
}

// HasRule reports whether the given function is registered as a rule,
// under any arguments.
func (f *Filter[T]) HasRule(fn Rule[T]) bool {
	key := reflect.ValueOf(fn).Pointer()
	for _, rule := range f.rules {
		if reflect.ValueOf(rule.fn).Pointer() == key {
			return true
		}
	}
	return false
}

// AddRuleTemp adds a rule and returns a function that removes it again.
func (f *Filter[T]) AddRuleTemp(fn Rule[T], args ...any) func() {
	ruleID := f.AddRule(fn, args...)
	return func() {
		_ = f.RemoveRule(ruleID)
	}
}

// AddSubfilter adds a nested filter under the given name.
func (f *Filter[T]) AddSubfilter(name string, subfilter *Filter[T]) error {
	if _, ok := f.subfilters[name]; ok {
		return fmt.Errorf("subfilter %q already exists in the filter", name)
	}
	f.subfilters[name] = subfilter
	f.subOrder = append(f.subOrder, name)
	return nil
}

// Subfilter returns the nested filter with the given name.
func (f *Filter[T]) Subfilter(name string) (*Filter[T], error) {
	subfilter, ok := f.subfilters[name]
	if !ok {
		return nil, fmt.Errorf("subfilter %q does not exist", name)
	}
	return subfilter, nil
}

// RemoveSubfilter removes the nested filter with the given name.
func (f *Filter[T]) RemoveSubfilter(name string) error {
	if _, ok := f.subfilters[name]; !ok {
		return fmt.Errorf("subfilter %q does not exist", name)
	}
	delete(f.subfilters, name)
	f.subOrder = slices.DeleteFunc(f.subOrder, func(n string) bool {
		return n == name
	})
	return nil
}

// HasSubfilter reports whether a nested filter with the given name exists.
func (f *Filter[T]) HasSubfilter(name string) bool {
	_, ok := f.subfilters[name]
	return ok
}

// AddSubfilterTemp adds a nested filter and returns a function that
// removes it again.
func (f *Filter[T]) AddSubfilterTemp(name string, subfilter *Filter[T]) (func(), error) {
	if err := f.AddSubfilter(name, subfilter); err != nil {
		return nil, err
	}
	return func() {
		_ = f.RemoveSubfilter(name)
	}, nil
}

// IsMatch reports whether the object matches the filter. An empty filter
// matches every object. With MatchAll, the object must match all rules and
// all subfilters; with MatchAny, at least one of them.
func (f *Filter[T]) IsMatch(item T) bool {
	if f.Len() == 0 {
		return true
	}
	if f.matchType == MatchAny {
		return f.isMatchAny(item)
	}
	return f.isMatchAll(item)
}

func (f *Filter[T]) isMatchAll(item T) bool {
	for _, rule := range f.rules {
		if !rule.fn(item, rule.args...) {
			return false
		}
	}
	for _, name := range f.subOrder {
		if !f.subfilters[name].IsMatch(item) {
			return false
		}
	}
	return true
}

func (f *Filter[T]) isMatchAny(item T) bool {
	for _, rule := range f.rules {
		if rule.fn(item, rule.args...) {
			return true
		}
	}
	for _, name := range f.subOrder {
		if f.subfilters[name].IsMatch(item) {
			return true
		}
	}
	return false
}
