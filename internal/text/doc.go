// Package text provides sentence segmentation and sentence-bounded batching
// of input text. Long inputs are partitioned into synthesis-sized batches
// capped at a character budget without ever splitting a sentence.
package text
