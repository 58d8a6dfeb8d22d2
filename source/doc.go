// Package source loads package blobs from files and streams, undoing an
// optional LZ4 or zstd frame, and fingerprints them with BLAKE3.
package source
