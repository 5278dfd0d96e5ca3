package netback

import (
	"fmt"
	"regexp"
	"strings"
)

// SecuritySections are configuration section names whose edits are always
// security-sensitive. Matching is a case-insensitive substring test against
// the change's section. Kept as plain data so tests can iterate the table.
var SecuritySections = []string{
	"firewall",
	"nat",
	"ip firewall",
	"ip route",
	"interface bridge",
	"user",
	"ip service",
	"ip hotspot",
	"tool mac-server",
}

// SecurityPatterns are content patterns that mark a line security-sensitive
// regardless of section: security-relevant path prefixes and credential
// markers. Compiled case-insensitively at classifier construction.
var SecurityPatterns = []string{
	`/ip firewall`,
	`/ip route`,
	`/ip nat`,
	`/interface bridge`,
	`/user`,
	`/ip service`,
	`password=`,
	`secret=`,
}

// Classifier decides whether a configuration line is security-sensitive.
// The rule set is static configuration: new rules are added by extending
// the tables, never inferred.
type Classifier struct {
	sections []string
	patterns []*regexp.Regexp
}

// NewClassifier compiles a classifier from section names and content
// patterns. A malformed pattern is a configuration error and fails
// construction; rules are static, so this surfaces at startup rather than
// per request.
func NewClassifier(sections []string, patterns []string) (*Classifier, error) {
	c := &Classifier{
		sections: make([]string, len(sections)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for i, s := range sections {
		c.sections[i] = strings.ToLower(s)
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling classification pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// NewDefaultClassifier builds a classifier from the built-in rule tables.
func NewDefaultClassifier() (*Classifier, error) {
	return NewClassifier(SecuritySections, SecurityPatterns)
}

// IsSensitive reports whether a line is security-sensitive given its
// section. Pure function of its inputs: section-name rules first, then
// content patterns.
func (c *Classifier) IsSensitive(line, section string) bool {
	lowered := strings.ToLower(section)
	for _, s := range c.sections {
		if strings.Contains(lowered, s) {
			return true
		}
	}
	for _, re := range c.patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
