// Package session holds compiler-wide configuration, following the same
// functional-options-over-a-config-struct shape as wazero's
// wazero.RuntimeConfig / wazero.NewRuntimeConfig: a zero-value-safe default
// plus With* constructors the CLI and any embedding Go program can compose.
package session

// Config controls how compiler.Driver lowers a Program.
type Config struct {
	// EmitConcurrently runs independent modules' conversion through
	// golang.org/x/sync/errgroup rather than sequentially (spec.md's
	// concurrency section: conversion of distinct modules has no shared
	// mutable state once the program-wide global layout is fixed).
	EmitConcurrently bool

	// VerifyMergeShapes, when false, downgrades merge-mismatch diagnostics
	// (spec.md 4.7/P6) from fatal errors to warnings -- useful while
	// iterating on a new rewrite pass whose output hasn't stabilized yet.
	VerifyMergeShapes bool

	// TextOutput additionally renders the compiled Program with masm.Print,
	// for CLI consumers that want a diffable artifact rather than the
	// in-memory Program alone.
	TextOutput bool
}

// NewConfig returns the default Config: merge-shape verification on,
// sequential emission, no text rendering.
func NewConfig() Config {
	return Config{VerifyMergeShapes: true}
}

type Option func(*Config)

func WithConcurrentEmit() Option {
	return func(c *Config) { c.EmitConcurrently = true }
}

func WithMergeVerification(enabled bool) Option {
	return func(c *Config) { c.VerifyMergeShapes = enabled }
}

func WithTextOutput() Option {
	return func(c *Config) { c.TextOutput = true }
}

func (c Config) Apply(opts ...Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
