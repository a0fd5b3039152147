// Package main hosts the audiochain CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, then hands recipes to the
// audio chain, renders the format catalog, inspects files with ffprobe and
// reads the invocation journal. Engine and filesystem wiring lives in
// commandContext so subcommands stay declarative.
package main
