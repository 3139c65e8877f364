package ikala

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xeptore/ikala/ptr"
)

// LyricsSeries is a time-aligned lyrics annotation as four parallel sequences
// of equal length. Times are in seconds. A nil Pronunciations element means
// the source row carried no pronunciation guide for that token.
type LyricsSeries struct {
	StartTimes     []float64
	EndTimes       []float64
	Lyrics         []string
	Pronunciations []*string
}

func (s *LyricsSeries) Len() int {
	return len(s.Lyrics)
}

// LoadLyrics parses a lyrics annotation file of space-delimited rows:
//
//	start_ms end_ms token [pronunciation words...]
//
// Start and end times are converted from milliseconds to seconds. An absent
// file yields a nil series and no error.
func LoadLyrics(path string) (*LyricsSeries, error) {
	f, err := os.Open(path)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open lyrics file %q: %v", path, err)
	}
	defer f.Close()

	series := &LyricsSeries{
		StartTimes:     nil,
		EndTimes:       nil,
		Lyrics:         nil,
		Pronunciations: nil,
	}
	scanner := bufio.NewScanner(f)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		fields := strings.Split(scanner.Text(), " ")
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: lyrics file %q line %d: expected at least 3 fields, got %d", ErrMalformedFile, path, lineNum, len(fields))
		}

		startMS, err := strconv.ParseFloat(fields[0], 64)
		if nil != err {
			return nil, fmt.Errorf("%w: lyrics file %q line %d: start time %q is not a number", ErrMalformedFile, path, lineNum, fields[0])
		}
		endMS, err := strconv.ParseFloat(fields[1], 64)
		if nil != err {
			return nil, fmt.Errorf("%w: lyrics file %q line %d: end time %q is not a number", ErrMalformedFile, path, lineNum, fields[1])
		}

		series.StartTimes = append(series.StartTimes, startMS/1000)
		series.EndTimes = append(series.EndTimes, endMS/1000)
		series.Lyrics = append(series.Lyrics, fields[2])

		if pron := strings.Join(fields[3:], " "); pron != "" {
			series.Pronunciations = append(series.Pronunciations, ptr.Of(pron))
		} else {
			series.Pronunciations = append(series.Pronunciations, nil)
		}
	}
	if err := scanner.Err(); nil != err {
		return nil, fmt.Errorf("failed to read lyrics file %q: %v", path, err)
	}
	return series, nil
}
