package narration

import "time"

// MaxSilenceChunk bounds a single silence unit. Some backends read the
// number aloud when asked for one silence longer than about ten seconds.
const MaxSilenceChunk = 5 * time.Second

// ChunkPause splits d into ceil(d/MaxSilenceChunk) silence units of equal
// length. Leftover nanoseconds go to the leading units so the total is
// exactly d. A non-positive d yields nil.
func ChunkPause(d time.Duration) []Unit {
	if d <= 0 {
		return nil
	}

	n := (d + MaxSilenceChunk - 1) / MaxSilenceChunk
	base, rem := d/n, d%n

	units := make([]Unit, n)
	for i := range units {
		dur := base
		if time.Duration(i) < rem {
			dur++
		}
		units[i] = Unit{Kind: UnitSilence, Duration: dur}
	}
	return units
}
