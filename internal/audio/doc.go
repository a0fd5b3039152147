// Package audio builds and runs chains of audio edits on top of an external
// engine (ffmpeg).
//
// The package is layered leaves first:
//   - Artifact: a reference-counted handle to one file on disk
//   - Build: a pure translation of an Operation into engine arguments
//   - Invoker: runs a built Command, maps exit status and captured
//     diagnostics onto the error markers in errors.go
//   - Lookup/ParseFormat: the static format catalog
//   - Processor: the chain node returned by every editing method
//
// A chain starts with Runtime.Open and proceeds one blocking engine process
// per call:
//
//	src, err := rt.Open("src.wav")
//	seeked, err := src.Seek(ctx, 30*time.Second)
//	trimmed, err := seeked.Trim(ctx, 10*time.Second, 20*time.Second)
//	out, err := trimmed.Transcode(ctx, audio.FormatMP3, "out.mp3")
//
// Single-input operations consume their receiver; Merge and Overlay only
// read. Intermediate files live in the runtime's TempSpace and are removed
// when the last processor referencing them is closed.
package audio
