package safety

import (
	"regexp"

	"github.com/pkg/errors"
)

// Matcher recognizes one emergency indicator in an already normalized
// (lowercased) utterance.
type Matcher interface {
	Name() string
	Match(normalized string) bool
}

// PhraseMatcher is a Matcher backed by a case-insensitive regular expression.
// It matches anywhere in the text, not just on whole-message equality.
type PhraseMatcher struct {
	name string
	re   *regexp.Regexp
}

var _ Matcher = (*PhraseMatcher)(nil)

func NewPhraseMatcher(name string, pattern string) (*PhraseMatcher, error) {
	if name == "" {
		return nil, errors.New("matcher name is empty")
	}
	if pattern == "" {
		return nil, errors.Errorf("matcher %s has an empty pattern", name)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid pattern for matcher %s", name)
	}
	return &PhraseMatcher{name: name, re: re}, nil
}

// MustPhraseMatcher is NewPhraseMatcher for patterns known at compile time.
func MustPhraseMatcher(name string, pattern string) *PhraseMatcher {
	m, err := NewPhraseMatcher(name, pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *PhraseMatcher) Name() string {
	return p.name
}

func (p *PhraseMatcher) Pattern() string {
	return p.re.String()
}

func (p *PhraseMatcher) Match(normalized string) bool {
	return p.re.MatchString(normalized)
}
