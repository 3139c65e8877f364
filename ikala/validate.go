package ikala

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// Report is the outcome of one validation pass over the manifest. Missing or
// mismatched files are report content, not errors: loading proceeds
// best-effort and callers decide how strict to be.
type Report struct {
	MissingFiles     []string
	InvalidChecksums []string
}

// OK reports whether the pass found every indexed file present with a
// matching checksum.
func (r *Report) OK() bool {
	return len(r.MissingFiles) == 0 && len(r.InvalidChecksums) == 0
}

// Validate checks every manifest-referenced file under dir for existence and
// checksum agreement, plus the singer ID mapping file for existence. It only
// fails on genuine I/O trouble reading an existing file, never on absence or
// mismatch.
func Validate(idx *Index, dir DataDir) (*Report, error) {
	report := &Report{MissingFiles: nil, InvalidChecksums: nil}
	for _, trackID := range idx.ids {
		entry := idx.entries[trackID]
		for _, ref := range []FileRef{entry.Audio, entry.Pitch, entry.Lyrics} {
			if err := checkFile(dir, ref, report); nil != err {
				return nil, err
			}
		}
	}

	if _, err := os.Stat(dir.IDMappingPath()); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat singer ID mapping file: %v", err)
		}
		report.MissingFiles = append(report.MissingFiles, datasetDirName+"/"+idMappingFileName)
	}
	return report, nil
}

// IsFullyValidated recomputes a validation pass and reports whether it came
// back clean. Nothing is persisted: there is no invalidation signal that
// would make a stored marker trustworthy.
func IsFullyValidated(idx *Index, dir DataDir) (bool, error) {
	report, err := Validate(idx, dir)
	if nil != err {
		return false, err
	}
	return report.OK(), nil
}

func checkFile(dir DataDir, ref FileRef, report *Report) error {
	sum, err := fileChecksum(dir.Resolve(ref.Path))
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			report.MissingFiles = append(report.MissingFiles, ref.Path)
			return nil
		}
		return err
	}
	if sum != ref.Checksum {
		report.InvalidChecksums = append(report.InvalidChecksums, ref.Path)
	}
	return nil
}

// fileChecksum computes the MD5 digest of a local file. The reference
// checksums the manifest records are MD5, so that is what gets compared.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		return "", fmt.Errorf("failed to open %q for checksumming: %v", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); nil != err {
		return "", fmt.Errorf("failed to checksum %q: %v", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
