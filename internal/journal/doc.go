// Package journal persists the history of engine invocations in SQLite.
//
// Every command the audio invoker runs, successful or not, is stored with its
// arguments, exit status and diagnostic text so a failed chain can be
// reconstructed after the fact. Store implements audio.Recorder.
package journal
