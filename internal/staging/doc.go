// Package staging sweeps leftovers of interrupted work: hidden ffmpeg work
// directories in the output tree and partial upload files in the upload
// directory. Both are dot-prefixed so they never collide with job names
// and are never served.
package staging
