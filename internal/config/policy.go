package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ArchivedByConfig marks scanned files as archived based on captured path
// metadata: a file is archived when the value captured for Key is one of
// Values (compared case-insensitively).
type ArchivedByConfig struct {
	Type   string   `toml:"type"` // "metadata"
	Key    string   `toml:"key"`
	Values []string `toml:"values"`
}

// Validate checks that the policy is well-formed.
func (a *ArchivedByConfig) Validate() error {
	if a.Type != "metadata" {
		return fmt.Errorf("unknown archived_by type: %s", a.Type)
	}
	if a.Key == "" {
		return fmt.Errorf("archived_by requires a key")
	}
	return nil
}

// Match reports whether the metadata marks a file as archived.
func (a *ArchivedByConfig) Match(metadata map[string]string) bool {
	value, ok := metadata[strings.ToLower(a.Key)]
	if !ok {
		return false
	}
	for _, v := range a.Values {
		if strings.EqualFold(value, v) {
			return true
		}
	}
	return false
}

var formatVarRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// GroupByConfig derives a file group from captured path metadata by
// substituting {var} placeholders in Format. A file whose metadata is
// missing any referenced placeholder carries no group.
type GroupByConfig struct {
	Type   string `toml:"type"`   // "format"
	Format string `toml:"format"` // e.g. "{artist}/{album}"
}

// Validate checks that the policy is well-formed.
func (g *GroupByConfig) Validate() error {
	if g.Type != "format" {
		return fmt.Errorf("unknown group_by type: %s", g.Type)
	}
	if g.Format == "" {
		return fmt.Errorf("group_by requires a format")
	}
	return nil
}

// Derive returns the group string for the given metadata. It reports false
// when any referenced placeholder has no captured value; such files carry
// no group rather than a partially substituted one.
func (g *GroupByConfig) Derive(metadata map[string]string) (string, bool) {
	complete := true
	group := formatVarRe.ReplaceAllStringFunc(g.Format, func(tok string) string {
		name := strings.ToLower(tok[1 : len(tok)-1])
		value, ok := metadata[name]
		if !ok {
			complete = false
		}
		return value
	})
	if !complete {
		return "", false
	}
	return group, true
}
