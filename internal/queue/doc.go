// Package queue provides the FIFO that feeds speech backends their
// utterances one at a time.
package queue
