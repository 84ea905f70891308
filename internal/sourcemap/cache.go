package sourcemap

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// candorCacheSchemaVersion is bumped whenever diskPayload's shape
// changes, so an old .candorc from a previous build is ignored rather
// than misdecoded.
const candorCacheSchemaVersion uint16 = 1

// diskPayload is the on-disk shape a Set serializes to; Map's sorted
// invariant is not re-verified on load — Push already guaranteed it
// when the maps were built, and a hand-edited .candorc is not a
// supported input.
type diskPayload struct {
	Schema uint16
	Funcs  []string
	Pairs  [][]PushedPair
}

// SaveCandorc writes s to path (conventionally "<source>.candorc")
// via an atomic temp-file-then-rename, the same pattern the teacher's
// disk cache uses for its own msgpack sidecar files.
func SaveCandorc(path string, s *Set) error {
	payload := &diskPayload{Schema: candorCacheSchemaVersion}
	for name, m := range s.Maps {
		payload.Funcs = append(payload.Funcs, name)
		payload.Pairs = append(payload.Pairs, m.Pairs)
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "candorc-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// LoadCandorc reads a Set previously written by SaveCandorc. It
// returns (nil, nil) if path does not exist — a missing source map is
// not an error, it just means stack traces fall back to raw code
// offsets.
func LoadCandorc(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var payload diskPayload
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Schema != candorCacheSchemaVersion {
		return nil, nil
	}

	s := NewSet()
	for i, name := range payload.Funcs {
		s.Maps[name] = &Map{FuncName: name, Pairs: payload.Pairs[i]}
	}
	return s, nil
}
