package ikala

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Metadata is the singer ID mapping loaded for one root data directory.
type Metadata struct {
	DataDir DataDir
	singers map[string]string
}

// SingerID looks up the performer of a song.
func (m *Metadata) SingerID(songID string) (string, bool) {
	singer, ok := m.singers[songID]
	return singer, ok
}

func (m *Metadata) Len() int {
	return len(m.singers)
}

// LoadMetadata parses the singer ID mapping file under dir. The file must
// already exist locally; fetching it is the downloader's job.
func LoadMetadata(dir DataDir) (*Metadata, error) {
	path := dir.IDMappingPath()
	f, err := os.Open(path)
	if nil != err {
		return nil, fmt.Errorf("failed to open singer ID mapping file %q: %v", path, err)
	}
	defer f.Close()

	singers, err := parseIDMapping(f)
	if nil != err {
		return nil, fmt.Errorf("singer ID mapping file %q: %w", path, err)
	}
	return &Metadata{DataDir: dir, singers: singers}, nil
}

// parseIDMapping reads the tab-separated mapping. The header row starts with
// the literal field "singer" and is skipped; every other row maps its second
// field (song ID) to its first (singer ID). On duplicate song IDs the last
// row wins.
func parseIDMapping(r io.Reader) (map[string]string, error) {
	singers := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		fields := strings.Split(scanner.Text(), "\t")
		if fields[0] == "singer" {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected at least 2 tab-separated fields, got %d", ErrMalformedFile, lineNum, len(fields))
		}
		singers[fields[1]] = fields[0]
	}
	if err := scanner.Err(); nil != err {
		return nil, fmt.Errorf("failed to read mapping: %v", err)
	}
	return singers, nil
}
