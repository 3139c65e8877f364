package ikala

import (
	"path/filepath"
)

const (
	datasetDirName    = "iKala"
	idMappingFileName = "id_mapping.txt"
)

// DataDir is the root data directory the dataset lives under. The corpus
// itself sits in an iKala folder below it, holding the Lyrics, PitchLabel,
// and Wavfile subfolders the manifest paths point into.
type DataDir string

func DataDirFrom(d string) DataDir {
	return DataDir(d)
}

func (d DataDir) path() string {
	return string(d)
}

// Resolve maps a manifest-relative path to an absolute local path.
func (d DataDir) Resolve(rel string) string {
	return filepath.Join(d.path(), filepath.FromSlash(rel))
}

func (d DataDir) IDMappingPath() string {
	return filepath.Join(d.path(), datasetDirName, idMappingFileName)
}
