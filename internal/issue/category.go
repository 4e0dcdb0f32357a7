package issue

import (
	"regexp"
	"strings"
)

// CategoryGuesser infers a category from a message when the tool output does
// not carry one. It returns "" when nothing fits.
type CategoryGuesser func(message string) string

type categoryRule struct {
	re       *regexp.Regexp
	category string
}

// categoryRules is checked in order; the first rule matching the lower-cased
// message wins. Keywords match whole words only, so "race" does not match
// "trace" and "lock" does not match "block".
var categoryRules = compileCategoryRules([][2]string{
	{`deprecat\w*`, "Deprecation"},
	{`unused`, "Unused"},
	{`never used`, "Unused"},
	{`unreachable`, "Unreachable"},
	{`dead code`, "Unreachable"},
	{`null pointer`, "Null"},
	{`nil pointer`, "Null"},
	{`nil dereference`, "Null"},
	{`may be null`, "Null"},
	{`shadow\w*`, "Shadowing"},
	{`overflows?`, "Overflow"},
	{`conversions?`, "Conversion"},
	{`implicit(?:ly)?`, "Conversion"},
	{`uninitiali[sz]ed`, "Initialization"},
	{`not initiali[sz]ed`, "Initialization"},
	{`format strings?`, "Format"},
	{`printf`, "Format"},
	{`import(?:s|ed|ing)?`, "Imports"},
	{`undefined`, "Undefined"},
	{`undeclared`, "Undefined"},
	{`cannot find symbol`, "Undefined"},
	{`mismatched types?`, "Type"},
	{`incompatible types?`, "Type"},
	{`type mismatch`, "Type"},
	{`return value`, "Error Handling"},
	{`not checked`, "Error Handling"},
	{`exceptions?`, "Error Handling"},
	{`line too long`, "Style"},
	{`whitespace`, "Style"},
	{`naming`, "Style"},
	{`missing docstring`, "Documentation"},
	{`comments?`, "Documentation"},
	{`security`, "Security"},
	{`injection`, "Security"},
	{`races?|data race`, "Concurrency"},
	{`deadlock\w*`, "Concurrency"},
	{`lock(?:s|ed|ing)?`, "Concurrency"},
})

func compileCategoryRules(table [][2]string) []categoryRule {
	rules := make([]categoryRule, len(table))
	for i, row := range table {
		rules[i] = categoryRule{re: regexp.MustCompile(`\b(?:` + row[0] + `)\b`), category: row[1]}
	}
	return rules
}

// GuessCategory is the default CategoryGuesser: a keyword lookup over the
// message text.
func GuessCategory(message string) string {
	m := strings.ToLower(message)
	for _, rule := range categoryRules {
		if rule.re.MatchString(m) {
			return rule.category
		}
	}
	return ""
}
