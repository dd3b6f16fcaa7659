// Package hotkey registers a global key combination.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned on builds without a keyboard hook backend.
var ErrUnsupported = errors.New("hotkey: global hotkeys not supported on this build")

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"cmd":     "cmd",
	"command": "cmd",
	"super":   "cmd",
}

// ParseCombo parses a combination such as "ctrl+shift+l" into hook key
// names: the modifiers in the order given, then the key.
func ParseCombo(combo string) ([]string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	var mods []string
	key := ""
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("hotkey %q: empty key", combo)
		}
		if m, ok := modifierAliases[p]; ok {
			mods = append(mods, m)
			continue
		}
		if key != "" {
			return nil, fmt.Errorf("hotkey %q: more than one non-modifier key", combo)
		}
		key = p
	}
	if key == "" {
		return nil, fmt.Errorf("hotkey %q: no key besides modifiers", combo)
	}
	return append(mods, key), nil
}
