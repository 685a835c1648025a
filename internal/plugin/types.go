// Package plugin runs external spell effect plugins.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// For every cast the executable receives one JSON Request on stdin and must
// answer with one JSON Response on stdout.
package plugin

import "encoding/json"

// AnySpell in a manifest's spell list subscribes the plugin to every cast.
const AnySpell = "*"

// ActionCast is the only action sent to plugins.
const ActionCast = "cast"

// Manifest describes a plugin's metadata and the spells it reacts to.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Spells      []string        `json:"spells"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action string          `json:"action"`
	Spell  string          `json:"spell"`
	Cast   json.RawMessage `json:"cast"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribes to spell.
func (p *Plugin) Handles(spell string) bool {
	for _, s := range p.Manifest.Spells {
		if s == AnySpell || s == spell {
			return true
		}
	}
	return false
}
