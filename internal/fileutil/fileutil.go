package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge reports that a stream exceeded the caller's byte limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrExists reports that the destination name is already taken.
var ErrExists = errors.New("destination already exists")

// Ingest streams r into dir/name. Data lands in a hidden partial file first
// and is renamed into place only when complete, so the upload directory never
// exposes truncated media. A limit <= 0 disables the size check.
func Ingest(r io.Reader, dir, name string, limit int64) (string, int64, error) {
	dst := filepath.Join(dir, name)
	if _, err := os.Lstat(dst); err == nil {
		return "", 0, fmt.Errorf("%w: %s", ErrExists, dst)
	}

	out, err := os.CreateTemp(dir, "."+name+"-*.part")
	if err != nil {
		return "", 0, err
	}
	partial := out.Name()
	discard := func() {
		_ = out.Close()
		_ = os.Remove(partial)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(out, src)
	if err != nil {
		discard()
		return "", written, err
	}
	if limit > 0 && written > limit {
		discard()
		return "", written, ErrTooLarge
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partial)
		return "", written, err
	}
	if err := os.Chmod(partial, 0o644); err != nil {
		_ = os.Remove(partial)
		return "", written, err
	}
	if err := os.Link(partial, dst); err != nil {
		_ = os.Remove(partial)
		if errors.Is(err, os.ErrExist) {
			return "", written, fmt.Errorf("%w: %s", ErrExists, dst)
		}
		return "", written, err
	}
	_ = os.Remove(partial)
	return dst, written, nil
}

// CopyVerified copies src into dir/name with SHA256 and size verification.
// The destination is never overwritten.
func CopyVerified(src, dir, name string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	srcHasher := sha256.New()
	dst, written, err := Ingest(io.TeeReader(in, srcHasher), dir, name, 0)
	if err != nil {
		return "", err
	}
	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}

	sum, err := hashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if !bytes.Equal(srcHasher.Sum(nil), sum) {
		_ = os.Remove(dst)
		return "", errors.New("copy hash mismatch: file corrupted during copy")
	}
	return dst, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
