// Package recipe describes an audio chain in TOML and runs it against an
// audio.Runtime.
//
// A recipe names a source file, an output file and an ordered list of
// [[step]] tables. Every step is compiled before the first engine call, so a
// typo or out-of-range value is reported without touching the filesystem.
//
//	source = "interview.wav"
//	output = "interview.mp3"
//
//	[[step]]
//	op = "trim"
//	start = "10s"
//	end = "20s"
//
//	[[step]]
//	op = "effect"
//	effect = "fade_out"
//	duration = "1.5s"
package recipe
