package flatten

import (
	"fmt"
	"regexp"

	"github.com/oakwood-commons/jvx/pkg/value"
)

// InvalidPatternMode selects what happens when a search term is not a valid
// regular expression.
type InvalidPatternMode string

const (
	// InvalidPatternLiteral searches for the term as plain text.
	InvalidPatternLiteral InvalidPatternMode = "literal"
	// InvalidPatternError reports the compile error and disables filtering.
	InvalidPatternError InvalidPatternMode = "error"
)

// ParseInvalidPatternMode validates a config value. Empty means literal.
func ParseInvalidPatternMode(s string) (InvalidPatternMode, error) {
	switch InvalidPatternMode(s) {
	case "", InvalidPatternLiteral:
		return InvalidPatternLiteral, nil
	case InvalidPatternError:
		return InvalidPatternError, nil
	}
	return "", fmt.Errorf("invalid search.invalid_pattern %q: valid values are literal, error", s)
}

// PatternError reports a search term that does not compile.
type PatternError struct {
	Term string
	Err  error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid search pattern %q: %v", e.Term, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Matcher tests paths and scalar values against a case-insensitive search
// pattern. A nil *Matcher matches nothing and means "not searching".
type Matcher struct {
	term    string
	re      *regexp.Regexp
	literal bool
}

// CompileSearch builds a matcher for term. An empty term returns a nil
// matcher. Terms that are not valid RE2 syntax are searched literally, or
// rejected with a *PatternError when mode is InvalidPatternError.
func CompileSearch(term string, mode InvalidPatternMode) (*Matcher, error) {
	if term == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + term)
	if err == nil {
		return &Matcher{term: term, re: re}, nil
	}
	if mode == InvalidPatternError {
		return nil, &PatternError{Term: term, Err: err}
	}
	return &Matcher{
		term:    term,
		re:      regexp.MustCompile("(?i)" + regexp.QuoteMeta(term)),
		literal: true,
	}, nil
}

// Term returns the search term as typed.
func (m *Matcher) Term() string {
	if m == nil {
		return ""
	}
	return m.term
}

// Literal reports whether the term was not a valid pattern and is matched as
// plain text.
func (m *Matcher) Literal() bool { return m != nil && m.literal }

// MatchString reports whether s contains a match.
func (m *Matcher) MatchString(s string) bool {
	return m != nil && m.re.MatchString(s)
}

// Matches reports whether a node is a hit: its path text matches, or it is a
// scalar whose displayed value matches. Composite values are matched by path
// only.
func (m *Matcher) Matches(path string, v value.Value) bool {
	if m == nil {
		return false
	}
	if m.re.MatchString(path) {
		return true
	}
	return !v.IsComposite() && m.re.MatchString(v.String())
}
