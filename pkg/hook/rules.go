// Package hook filters agent lifecycle events into desktop notifications.
package hook

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Event kinds understood by the hook.
const (
	KindPreToolUse        = "PreToolUse"
	KindStop              = "Stop"
	KindPermissionRequest = "PermissionRequest"
)

// RulesEnv overrides the location of the rule table.
const RulesEnv = "CLAUDE_PTY_HOOK_CONFIG"

// RulesFile is the rule table looked up next to the hook executable.
const RulesFile = "config.json"

// Rule controls notifications for one event kind. An empty Tools list
// admits every tool.
type Rule struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Tools   []string `yaml:"tools" json:"tools"`
}

// Rules maps event kinds to their rule. Kinds without a rule are disabled.
type Rules map[string]Rule

// LoadRules reads the rule table at path. JSON is accepted since it is a
// subset of YAML. On any failure the returned table is empty, which
// disables every event, and the error says why.
func LoadRules(path string) (Rules, error) {
	// #nosec G304 - the path is the hook's own config location
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if rules == nil {
		rules = Rules{}
	}
	return rules, nil
}

// RulesPath returns the rule table location: RulesEnv if set, else
// config.json in the executable's directory.
func RulesPath() string {
	if path := os.Getenv(RulesEnv); path != "" {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return RulesFile
	}
	return filepath.Join(filepath.Dir(exe), RulesFile)
}

// ShouldNotify reports whether an event of kind for tool is enabled.
func (r Rules) ShouldNotify(kind, tool string) bool {
	rule, ok := r[kind]
	if !ok || !rule.Enabled {
		return false
	}
	if len(rule.Tools) > 0 && !slices.Contains(rule.Tools, tool) {
		return false
	}
	return true
}
