// Package filter turns filter specifications into entry predicates.
//
// A specification is a predicate function, a single glob pattern or a list
// of patterns where a leading "!" negates. Patterns match the entry's base
// name and are compiled once, before the traversal starts.
package filter

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/bmatcuk/doublestar/v4"
)

// Predicate decides whether an entry is accepted
type Predicate func(entry *types.Entry) bool

// Spec is a filter specification. It is implemented by Func, Glob and Globs.
type Spec interface {
	compile() (Predicate, error)
}

// Func is a predicate used as-is. Predicates that read Stats need the
// traversal to run with AlwaysStat.
type Func Predicate

// Glob is a single pattern matched against the base name
type Glob string

// Globs is a list of patterns; entries starting with "!" are negated
type Globs []string

// AcceptAll accepts every entry
func AcceptAll(*types.Entry) bool { return true }

// Normalize compiles spec into a predicate. A nil spec accepts everything.
func Normalize(spec Spec) (Predicate, error) {
	if spec == nil {
		return AcceptAll, nil
	}
	return spec.compile()
}

// MustNormalize is Normalize for specs known to be valid
func MustNormalize(spec Spec) Predicate {
	p, err := Normalize(spec)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse builds a Spec from raw pattern strings. No patterns yields nil,
// a single plain pattern a Glob, anything else a Globs.
func Parse(patterns ...string) Spec {
	var cleaned []string
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	switch len(cleaned) {
	case 0:
		return nil
	case 1:
		if strings.HasPrefix(strings.TrimSpace(cleaned[0]), "!") {
			return Globs(cleaned)
		}
		return Glob(cleaned[0])
	default:
		return Globs(cleaned)
	}
}

// SplitPatterns splits a comma-separated pattern list. Commas inside
// braces belong to the pattern, so "*.{js,ts},!*.d.ts" is two patterns.
func SplitPatterns(list string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, list[start:i])
				start = i + 1
			}
		}
	}
	return append(out, list[start:])
}

func (f Func) compile() (Predicate, error) {
	if f == nil {
		return AcceptAll, nil
	}
	return Predicate(f), nil
}

func (g Glob) compile() (Predicate, error) {
	pattern, err := validate(string(g))
	if err != nil {
		return nil, err
	}
	return func(entry *types.Entry) bool {
		return doublestar.MatchUnvalidated(pattern, entry.Basename)
	}, nil
}

func (gs Globs) compile() (Predicate, error) {
	var positive, negated []string
	for _, raw := range gs {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		isNegated := strings.HasPrefix(pattern, "!")
		if isNegated {
			pattern = strings.TrimSpace(pattern[1:])
		}
		pattern, err := validate(pattern)
		if err != nil {
			return nil, err
		}
		if isNegated {
			negated = append(negated, pattern)
		} else {
			positive = append(positive, pattern)
		}
	}

	switch {
	case len(positive) == 0 && len(negated) == 0:
		return AcceptAll, nil
	case len(positive) == 0:
		return func(entry *types.Entry) bool {
			return !matchAny(negated, entry.Basename)
		}, nil
	case len(negated) == 0:
		return func(entry *types.Entry) bool {
			return matchAny(positive, entry.Basename)
		}, nil
	default:
		return func(entry *types.Entry) bool {
			return matchAny(positive, entry.Basename) && !matchAny(negated, entry.Basename)
		}, nil
	}
}

func validate(raw string) (string, error) {
	pattern := strings.TrimSpace(raw)
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("%w: %q", common.ErrBadPattern, raw)
	}
	return pattern, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if doublestar.MatchUnvalidated(p, name) {
			return true
		}
	}
	return false
}
