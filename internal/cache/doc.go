// Package cache keeps synthesized speech so repeated phrases are not sent
// to the synthesizer twice. An in-memory LRU sits in front of a
// zstd-compressed disk store that survives restarts.
package cache
