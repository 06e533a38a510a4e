// Package models provides the built-in agent-based models and the registry
// the CLI resolves names through.
package models
