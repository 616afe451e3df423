package expr

import (
	"regexp"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
)

var (
	callPattern     = regexp.MustCompile(`\w+\s*\(.*\)`)
	bracketPattern  = regexp.MustCompile(`[\[\]]`)
	bracePattern    = regexp.MustCompile(`[{}]`)
	compoundPattern = regexp.MustCompile(`\+\+|--|\+=|-=|\*=|/=|\|=|&=`)
)

// Validate rejects expressions that look like function calls, indexing,
// object literals or assignments. The checks run in that order and the
// first failure is returned.
func Validate(expression string) error {
	switch {
	case callPattern.MatchString(expression):
		return perrors.New("EXPR-0001", map[string]any{"Expression": expression})
	case bracketPattern.MatchString(expression):
		return perrors.New("EXPR-0002", map[string]any{"Expression": expression})
	case bracePattern.MatchString(expression):
		return perrors.New("EXPR-0003", map[string]any{"Expression": expression})
	case hasAssignment(expression):
		return perrors.New("EXPR-0004", map[string]any{"Expression": expression})
	}
	return nil
}

// hasAssignment reports a standalone "=" (one that is not part of ==, ===,
// !=, !==, <= or >=) or a compound assignment or update operator.
func hasAssignment(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}
		if i > 0 && (s[i-1] == '=' || s[i-1] == '!' || s[i-1] == '<' || s[i-1] == '>') {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			continue
		}
		return true
	}
	return compoundPattern.MatchString(s)
}
