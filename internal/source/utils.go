package source

import (
	"path/filepath"
	"slices"
	"strings"
)

// normalizeCRLF replaces every \r\n with \n, leaving a lone \r alone.
// It returns the (possibly unchanged) bytes and whether any
// replacement happened.
func normalizeCRLF(content []byte) ([]byte, bool) {
	// Fast path: nothing to do if there's no \r at all.
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false

	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i += 2
			changed = true
		} else {
			out = append(out, content[i])
			i++
		}
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) < 3 {
		return content, false
	}

	if content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}

	return content, false
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content))
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i))
		}
	}
	return out
}

// toLineCol converts a byte offset into a 1-based LineCol using
// lineIdx, the sorted list of newline byte offsets buildLineIndex
// produced. It binary searches for the last newline before off; the
// number of newlines before off is off's 0-based line.
func toLineCol(lineIdx []uint32, off uint32) LineCol {
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// Binary search for the largest lineIdx[i] < off.
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	line := hi + 1 // 0-based line index: newlines before off

	var startOff uint32
	if hi >= 0 {
		startOff = lineIdx[hi] + 1 // one past the previous line's newline
	}

	return LineCol{Line: uint32(line + 1), Col: off - startOff + 1}
}

func normalizePath(p string) string {
	// A consistent cross-platform form for diffable diagnostics and map keys.
	return filepath.ToSlash(filepath.Clean(p))
}

// AbsolutePath resolves p against the process's working directory and
// normalizes it, for File.FormatPath's "absolute" mode.
func AbsolutePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return normalizePath(abs), nil
}

// RelativePath expresses target relative to baseDir. A target outside
// baseDir (the relative form would start with "..") falls back to
// target's absolute form instead, so a diagnostic for a file outside
// the build root doesn't print a confusing string of "../../..".
func RelativePath(target, baseDir string) (string, error) {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		abs, absErr := filepath.Abs(target)
		if absErr != nil {
			return "", absErr
		}
		return normalizePath(abs), nil
	}
	return normalizePath(rel), nil
}

// BaseName returns the final path element of p, for File.FormatPath's
// "basename" and "auto" modes.
func BaseName(p string) string {
	return filepath.Base(p)
}
