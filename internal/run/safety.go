// Package run executes shell commands and generated scripts, gated by a
// best-effort deny-list. The filter is an explicit policy object, not a
// sandbox: it blocks the obviously destructive patterns an LLM is likely to
// emit, and its known gaps are documented and pinned by tests rather than
// papered over.
package run

import (
	"regexp"
	"strings"
)

// RuleKind distinguishes literal substring rules from regex rules.
type RuleKind string

const (
	RuleLiteral RuleKind = "literal"
	RuleRegex   RuleKind = "regex"
)

// Rule is one deny-list entry. Pattern is matched against the lower-cased,
// trimmed command: literals as substrings, regexes case-insensitively.
type Rule struct {
	Kind    RuleKind
	Pattern string
	Reason  string

	re *regexp.Regexp
}

// denyRules is evaluated in order; the first match wins. Patterns are kept
// verbatim from long-standing policy, quirks included:
//   - "rm -rf /" matches as a substring, so "rm -rf /tmp/x" is blocked too
//     (a known false positive).
//   - "chmod -R 777 /" contains an upper-case R while the command is
//     lower-cased before matching, so it never fires (a known gap).
//
// Both behaviors are pinned by tests; do not "fix" them without revisiting
// the tests and the policy.
var denyRules = []Rule{
	{Kind: RuleLiteral, Pattern: "rm -rf /", Reason: "recursive delete from root"},
	{Kind: RuleLiteral, Pattern: "rm -rf ~", Reason: "recursive delete of home"},
	{Kind: RuleLiteral, Pattern: "mkfs", Reason: "filesystem format"},
	{Kind: RuleLiteral, Pattern: "dd if=", Reason: "raw disk write"},
	{Kind: RuleLiteral, Pattern: ":(){", Reason: "fork bomb"},
	{Kind: RuleLiteral, Pattern: "chmod -R 777 /", Reason: "world-writable root"},
	{Kind: RuleLiteral, Pattern: "> /dev/sda", Reason: "raw device write"},
	{Kind: RuleLiteral, Pattern: "shutdown", Reason: "system shutdown"},
	{Kind: RuleLiteral, Pattern: "reboot", Reason: "system reboot"},
	{Kind: RuleRegex, Pattern: `curl\s+.*\|\s*(sh|bash)`, Reason: "download piped to shell"},
	{Kind: RuleRegex, Pattern: `wget\s+.*\|\s*(sh|bash)`, Reason: "download piped to shell"},
}

func init() {
	for i := range denyRules {
		if denyRules[i].Kind == RuleRegex {
			denyRules[i].re = regexp.MustCompile("(?i)" + denyRules[i].Pattern)
		}
	}
}

// Check inspects a command string against the deny rules and returns the
// first rule that fired, or nil if the command is allowed.
func Check(command string) *Rule {
	cmd := strings.ToLower(strings.TrimSpace(command))
	for i := range denyRules {
		rule := &denyRules[i]
		switch rule.Kind {
		case RuleLiteral:
			if strings.Contains(cmd, rule.Pattern) {
				return rule
			}
		case RuleRegex:
			if rule.re.MatchString(cmd) {
				return rule
			}
		}
	}
	return nil
}

// Rules returns the deny-list for enumeration in tests and diagnostics.
func Rules() []Rule {
	return denyRules
}
