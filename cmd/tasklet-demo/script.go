package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Script describes a scripted sequence of tasklet operations, loaded from a
// YAML file. It exists purely as a manual-testing and demonstration aid —
// the library itself persists nothing (§6) — the same way compileopts'
// Options struct exists to shuttle configuration into a CLI-adjacent
// binary rather than into the compiler core.
type Script struct {
	// Name labels the script in output; optional.
	Name string `yaml:"name"`

	// Steps is the ordered sequence of operations to perform against a
	// single root tasklet tree.
	Steps []Step `yaml:"steps"`
}

// Step is one scripted operation.
type Step struct {
	// Op is one of "create", "switch", "throw".
	Op string `yaml:"op"`

	// Tasklet names the tasklet this step creates or targets.
	Tasklet string `yaml:"tasklet"`

	// Parent names this tasklet's parent, for "create" steps. Empty means
	// "whichever tasklet is current at the time this step runs".
	Parent string `yaml:"parent,omitempty"`

	// Message is echoed by a created tasklet's body every time it is
	// switched into, and is the argument staged by a "switch" step.
	Message string `yaml:"message,omitempty"`

	// Reason is the error text staged by a "throw" step.
	Reason string `yaml:"reason,omitempty"`
}

// LoadScript reads and parses a Script from path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tasklet-demo: reading script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("tasklet-demo: parsing script: %w", err)
	}
	return &s, nil
}
