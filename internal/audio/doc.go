// Package audio plays raw 16-bit PCM through oto/v3 and generates the
// silence used for pause units.
package audio
