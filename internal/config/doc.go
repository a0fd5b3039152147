// Package config loads, normalizes, and validates audiochain configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for the engine binaries
// (AUDIOCHAIN_FFMPEG, AUDIOCHAIN_FFPROBE). Always obtain settings through this
// package so the CLI and the audio runtime see the same sanitized paths and
// canonical log formats.
package config
