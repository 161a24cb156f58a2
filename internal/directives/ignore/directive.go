// Package ignore handles "# itercheck: ignore" and "# pylint: disable=..."
// suppression comments.
package ignore

import (
	"sort"
	"strings"

	"itercheck/internal/pyast"
)

// RuleName identifies a rule that can be suppressed.
type RuleName string

// Known rule names. The message ID is accepted as a synonym.
const (
	ReusedIterator   RuleName = "reused-iterator"
	ReusedIteratorID RuleName = "W4802"
)

const (
	ownPrefix    = "itercheck:"
	pylintPrefix = "pylint:"
)

// Canonical maps a message ID to its symbolic rule name.
func Canonical(name RuleName) RuleName {
	if strings.EqualFold(string(name), string(ReusedIteratorID)) {
		return ReusedIterator
	}
	return name
}

// Entry is one suppression comment and the rules it has silenced so far.
type Entry struct {
	Pos   pyast.Position
	rules []RuleName // empty = all
	used  map[RuleName]bool

	// inline entries follow code and cover their own line only.
	inline bool
}

// Rules returns the rules the entry names, or nil if it silences all.
func (e *Entry) Rules() []RuleName { return e.rules }

// Map tracks suppression entries by line number.
type Map map[int]*Entry

// Build scans a module's comments for suppressions.
func Build(mod *pyast.Module) Map {
	m := make(Map)
	if mod == nil {
		return m
	}
	for _, c := range mod.Comments {
		rules, ok := parseComment(c.Text)
		if !ok {
			continue
		}
		m[c.Pos.Line] = &Entry{
			Pos:    c.Pos,
			rules:  rules,
			used:   make(map[RuleName]bool),
			inline: c.Inline,
		}
	}
	return m
}

// parseComment returns the rules a comment suppresses. A nil slice with
// true means every rule.
//
// Supported formats:
//   - # itercheck: ignore                        -> all rules
//   - # itercheck: ignore reused-iterator        -> one rule
//   - # itercheck: ignore reused-iterator - why  -> with a note
//   - # pylint: disable=reused-iterator,W0612    -> pylint style
//   - # pylint: disable=all
func parseComment(text string) ([]RuleName, bool) {
	text = strings.TrimSpace(strings.TrimPrefix(text, "#"))

	switch {
	case strings.HasPrefix(text, ownPrefix):
		rest := strings.TrimSpace(strings.TrimPrefix(text, ownPrefix))
		if !strings.HasPrefix(rest, "ignore") {
			return nil, false
		}
		rest = strings.TrimPrefix(rest, "ignore")
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '[' {
			return nil, false
		}
		return parseRules(rest), true

	case strings.HasPrefix(text, pylintPrefix):
		rest := strings.TrimSpace(strings.TrimPrefix(text, pylintPrefix))
		key, value, ok := strings.Cut(rest, "=")
		if !ok || strings.TrimSpace(key) != "disable" {
			return nil, false
		}
		rules := parseRules(value)
		for _, r := range rules {
			if r == "all" {
				return nil, true
			}
		}
		if len(rules) == 0 {
			return nil, false
		}
		return rules, true
	}
	return nil, false
}

// parseRules splits a comma separated rule list, stopping at a " - " note
// or a following comment.
func parseRules(rest string) []RuleName {
	if idx := strings.Index(rest, " - "); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "#"); idx >= 0 {
		rest = rest[:idx]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "["), "]")
	if rest == "" || rest == "-" || strings.HasPrefix(rest, "- ") {
		return nil
	}

	parts := strings.Split(rest, ",")
	rules := make([]RuleName, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			rules = append(rules, Canonical(RuleName(name)))
		}
	}
	return rules
}

// ShouldIgnore reports whether rule is suppressed on line, by a comment on
// the same line or by a comment alone on the line above. A matching entry
// is marked used.
func (m Map) ShouldIgnore(line int, rule RuleName) bool {
	rule = Canonical(rule)
	if m.match(m[line], rule) {
		return true
	}
	above := m[line-1]
	return above != nil && !above.inline && m.match(above, rule)
}

func (m Map) match(entry *Entry, rule RuleName) bool {
	if entry == nil {
		return false
	}
	if len(entry.rules) == 0 {
		entry.used[rule] = true
		return true
	}
	for _, r := range entry.rules {
		if r == rule {
			entry.used[rule] = true
			return true
		}
	}
	return false
}

// Unused is a suppression that silenced nothing.
type Unused struct {
	Pos   pyast.Position
	Rules []RuleName // empty if the whole directive was unused
}

// GetUnused returns the directives, or the rules within them, that no
// finding of an enabled rule consumed. Rules this tool does not know are
// left alone so pylint-only disables are not reported. The result is
// ordered by position.
func (m Map) GetUnused(enabled map[RuleName]bool) []Unused {
	var unused []Unused
	for _, entry := range m {
		if len(entry.rules) == 0 {
			anyUsed := false
			for rule := range enabled {
				if entry.used[rule] {
					anyUsed = true
					break
				}
			}
			if !anyUsed {
				unused = append(unused, Unused{Pos: entry.Pos})
			}
			continue
		}
		var rules []RuleName
		for _, rule := range entry.rules {
			if enabled[rule] && !entry.used[rule] {
				rules = append(rules, rule)
			}
		}
		if len(rules) > 0 {
			unused = append(unused, Unused{Pos: entry.Pos, Rules: rules})
		}
	}
	sort.Slice(unused, func(i, j int) bool {
		return unused[i].Pos.Offset < unused[j].Pos.Offset
	})
	return unused
}
