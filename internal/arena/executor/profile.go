// Package executor runs untrusted submission code in an isolated process
// with a hard wall-clock limit and guaranteed artifact cleanup.
package executor

import (
	"strings"

	appErr "codeclash/pkg/errors"
)

// Profile defines how to run one language: the interpreter command template
// and the source file extension. {src} in RunCmdTpl is replaced with the
// artifact path before shell-lexing.
type Profile struct {
	ID        string
	Name      string
	Extension string
	RunCmdTpl string
	Env       []string
}

// DefaultProfiles returns the built-in runtime table.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"python": {
			ID:        "python",
			Name:      "Python 3",
			Extension: ".py",
			RunCmdTpl: "python3 {src}",
		},
		"javascript": {
			ID:        "javascript",
			Name:      "Node.js",
			Extension: ".js",
			RunCmdTpl: "node {src}",
		},
		"shell": {
			ID:        "shell",
			Name:      "POSIX shell",
			Extension: ".sh",
			RunCmdTpl: "/bin/sh {src}",
		},
	}
}

// languageAliases maps accepted spellings to canonical profile ids.
var languageAliases = map[string]string{
	"python3": "python",
	"py":      "python",
	"js":      "javascript",
	"node":    "javascript",
	"nodejs":  "javascript",
	"sh":      "shell",
	"bash":    "shell",
}

func (e *Engine) resolveProfile(language string) (Profile, error) {
	id := strings.ToLower(strings.TrimSpace(language))
	if canonical, ok := languageAliases[id]; ok {
		id = canonical
	}
	prof, ok := e.profiles[id]
	if !ok {
		return Profile{}, appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", language)
	}
	return prof, nil
}
