// Package speech implements narration backends. Every backend speaks one
// unit at a time on its own goroutine and reports progress through the
// sink it was handed.
package speech
