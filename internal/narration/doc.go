// Package narration turns annotated meditation text into an ordered
// sequence of speech and silence units and schedules them on a speech
// backend, keeping a two-line caption and an active flag in step with
// the units that have actually finished playing.
package narration
