// Package main provides a keyboard plugin for wandcast.
// It sends a keyboard shortcut for each spell bound in its config, via
// AppleScript on macOS and xdotool elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Spell  string          `json:"spell"`
	Cast   json.RawMessage `json:"cast"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Binding is the shortcut sent for one spell.
type Binding struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// Config maps spells to shortcuts.
type Config struct {
	Bindings map[string]Binding `json:"bindings"`
}

// appleModifiers maps user-friendly modifier names to AppleScript equivalents.
var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// xdoModifiers maps the same names to xdotool key names.
var xdoModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "cast" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	binding, ok := cfg.Bindings[req.Spell]
	if !ok {
		// Unbound spells are not an error.
		writeSuccessResponse(`{"sent":false}`)
		return
	}
	if binding.Key == "" {
		writeErrorResponse(fmt.Sprintf("binding for %s has no key", req.Spell))
		return
	}

	if err := sendShortcut(binding); err != nil {
		writeErrorResponse(fmt.Sprintf("spell %s failed: %v", req.Spell, err))
		return
	}

	writeSuccessResponse(`{"sent":true}`)
}

// sendShortcut presses the binding on the current platform.
func sendShortcut(b Binding) error {
	if runtime.GOOS == "darwin" {
		return run("osascript", "-e", buildKeystrokeScript(b.Key, b.Modifiers))
	}
	return run("xdotool", "key", buildXdoKey(b.Key, b.Modifiers))
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	var mods []string
	for _, mod := range modifiers {
		if m, ok := appleModifiers[strings.ToLower(mod)]; ok {
			mods = append(mods, m)
		}
	}

	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(mods, ", "))
}

// buildXdoKey generates an xdotool key chord such as "ctrl+shift+p".
func buildXdoKey(key string, modifiers []string) string {
	parts := make([]string, 0, len(modifiers)+1)
	for _, mod := range modifiers {
		if m, ok := xdoModifiers[strings.ToLower(mod)]; ok {
			parts = append(parts, m)
		}
	}
	return strings.Join(append(parts, key), "+")
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: true,
		Data:    json.RawMessage(data),
	})
}

// run executes a command and returns any error with its output.
func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
