package ikala

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// indexBytes is the pre-built dataset manifest. It is a build artifact
// generated from a reference copy of the corpus, not something this module
// computes.
//
//go:embed ikala_index.json
var indexBytes []byte

var builtinIndex = func() *Index {
	idx, err := ParseIndex(indexBytes)
	if nil != err {
		panic(fmt.Sprintf("embedded index is malformed: %v", err))
	}
	return idx
}()

type FileRef struct {
	Path     string
	Checksum string
}

type IndexEntry struct {
	Audio  FileRef
	Pitch  FileRef
	Lyrics FileRef
}

// Index maps track IDs to the relative paths and checksums of their audio,
// pitch label, and lyrics files. Iteration order follows the manifest
// document order.
type Index struct {
	ids     []string
	entries map[string]IndexEntry
}

// BuiltinIndex returns the manifest shipped with the module.
func BuiltinIndex() *Index {
	return builtinIndex
}

func ParseIndex(data []byte) (*Index, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("index manifest is not valid JSON")
	}

	idx := &Index{
		ids:     nil,
		entries: make(map[string]IndexEntry),
	}
	var parseErr error
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		entry, err := parseIndexEntry(value)
		if nil != err {
			parseErr = fmt.Errorf("track %q: %v", key.String(), err)
			return false
		}
		idx.ids = append(idx.ids, key.String())
		idx.entries[key.String()] = *entry
		return true
	})
	if nil != parseErr {
		return nil, parseErr
	}
	if len(idx.ids) == 0 {
		return nil, errors.New("index manifest contains no tracks")
	}
	return idx, nil
}

func parseIndexEntry(value gjson.Result) (*IndexEntry, error) {
	audio, err := parseFileRef(value.Get("audio"))
	if nil != err {
		return nil, fmt.Errorf("audio: %v", err)
	}
	pitch, err := parseFileRef(value.Get("pitch"))
	if nil != err {
		return nil, fmt.Errorf("pitch: %v", err)
	}
	lyrics, err := parseFileRef(value.Get("lyrics"))
	if nil != err {
		return nil, fmt.Errorf("lyrics: %v", err)
	}
	return &IndexEntry{Audio: *audio, Pitch: *pitch, Lyrics: *lyrics}, nil
}

func parseFileRef(value gjson.Result) (*FileRef, error) {
	if !value.IsArray() {
		return nil, errors.New("expected a [path, checksum] pair")
	}
	pair := value.Array()
	if len(pair) != 2 {
		return nil, fmt.Errorf("expected a [path, checksum] pair, got %d elements", len(pair))
	}
	ref := &FileRef{Path: pair[0].String(), Checksum: pair[1].String()}
	if ref.Path == "" {
		return nil, errors.New("empty file path")
	}
	return ref, nil
}

// TrackIDs returns all track IDs in manifest order. The returned slice is a
// copy.
func (idx *Index) TrackIDs() []string {
	out := make([]string, len(idx.ids))
	copy(out, idx.ids)
	return out
}

func (idx *Index) Entry(trackID string) (IndexEntry, bool) {
	entry, ok := idx.entries[trackID]
	return entry, ok
}

func (idx *Index) Len() int {
	return len(idx.ids)
}
