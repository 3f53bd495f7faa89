// Package safety decides whether a single user utterance signals a medical
// emergency. The Filter is stateless and can be shared between any number of
// conversations.
package safety

import (
	"strings"
)

type Filter struct {
	matchers []Matcher
}

// New builds a filter from an ordered list of matchers. Nil matchers are
// skipped.
func New(matchers ...Matcher) *Filter {
	ms := make([]Matcher, 0, len(matchers))
	for _, m := range matchers {
		if m != nil {
			ms = append(ms, m)
		}
	}
	return &Filter{matchers: ms}
}

// Default returns a filter over DefaultMatchers.
func Default() *Filter {
	return New(DefaultMatchers()...)
}

func normalize(utterance string) string {
	return strings.ToLower(utterance)
}

// Detect reports whether any matcher fires anywhere in the utterance.
func (f *Filter) Detect(utterance string) bool {
	if utterance == "" {
		return false
	}
	t := normalize(utterance)
	for _, m := range f.matchers {
		if m.Match(t) {
			return true
		}
	}
	return false
}

// Matches returns the names of all matchers firing on the utterance, in
// matcher order.
func (f *Filter) Matches(utterance string) []string {
	if utterance == "" {
		return nil
	}
	t := normalize(utterance)
	var ret []string
	for _, m := range f.matchers {
		if m.Match(t) {
			ret = append(ret, m.Name())
		}
	}
	return ret
}

func (f *Filter) Matchers() []Matcher {
	ret := make([]Matcher, len(f.matchers))
	copy(ret, f.matchers)
	return ret
}
