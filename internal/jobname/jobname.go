// Package jobname derives the public identifier of a transcoding job from the
// path of its uploaded source file.
//
// The identifier doubles as the status record key and as the directory name
// under the HLS output tree, so it is restricted to a filesystem and URL safe
// alphabet.
package jobname

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds derived names in bytes.
const MaxLength = 128

// ErrInvalid reports a source path or client-supplied name that cannot be
// used as a job identifier.
var ErrInvalid = errors.New("invalid job name")

// Derive returns the job name for sourcePath: the base name with its final
// extension removed, folded to ASCII and restricted to [A-Za-z0-9._-].
func Derive(sourcePath string) (string, error) {
	base := filepath.Base(strings.TrimSpace(sourcePath))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("%w: no file name in %q", ErrInvalid, sourcePath)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	folded, err := fold(base)
	if err != nil {
		return "", fmt.Errorf("%w: normalize %q: %v", ErrInvalid, base, err)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if allowed(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('-')
	}
	name := strings.TrimLeft(b.String(), ".-")
	if len(name) > MaxLength {
		name = name[:MaxLength]
	}
	name = strings.TrimRight(name, ".")
	if name == "" {
		return "", fmt.Errorf("%w: %q yields an empty name", ErrInvalid, sourcePath)
	}
	return name, nil
}

// Validate checks a name received from a client before it is used as a
// lookup key or path component.
func Validate(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalid)
	}
	if len(name) > MaxLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalid, MaxLength)
	}
	if name[0] == '.' || name[0] == '-' {
		return fmt.Errorf("%w: %q starts with %q", ErrInvalid, name, name[0])
	}
	for _, r := range name {
		if !allowed(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalid, name, r)
		}
	}
	return nil
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	default:
		return false
	}
}

func fold(value string) (string, error) {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	return out, err
}
