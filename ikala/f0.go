package ikala

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// TimeStep is the fixed frame step of the pitch label files, in seconds.
// Frame 0 starts at time 0.
const TimeStep = 0.032

// F0Series is a fundamental frequency contour as three parallel sequences of
// equal length. FrequencyHz is 0 on unvoiced frames, and Confidence is 1
// exactly on the frames where FrequencyHz is positive.
type F0Series struct {
	Times       []float64
	FrequencyHz []float64
	Confidence  []int
}

func (s *F0Series) Len() int {
	return len(s.Times)
}

// LoadF0 parses a pitch label file: one floating-point MIDI value per line,
// one line per fixed 0.032s frame. A MIDI value of 0 marks silence and maps
// to a frequency of exactly 0. Some tracks ship without pitch labels, so an
// absent file yields a nil series and no error.
func LoadF0(path string) (*F0Series, error) {
	f, err := os.Open(path)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open pitch label file %q: %v", path, err)
	}
	defer f.Close()

	var midi []float64
	scanner := bufio.NewScanner(f)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64)
		if nil != err {
			return nil, fmt.Errorf("%w: pitch label file %q line %d: %q is not a number", ErrMalformedFile, path, lineNum, scanner.Text())
		}
		midi = append(midi, v)
	}
	if err := scanner.Err(); nil != err {
		return nil, fmt.Errorf("failed to read pitch label file %q: %v", path, err)
	}

	series := &F0Series{
		Times:       make([]float64, len(midi)),
		FrequencyHz: make([]float64, len(midi)),
		Confidence:  nil,
	}
	for i, m := range midi {
		series.Times[i] = float64(i) * TimeStep
		if m > 0 {
			series.FrequencyHz[i] = midiToHz(m)
		}
	}
	series.Confidence = lo.Map(series.FrequencyHz, func(hz float64, _ int) int {
		if hz > 0 {
			return 1
		}
		return 0
	})
	return series, nil
}

// midiToHz converts an equal-tempered MIDI note number to Hz (A4 = 440).
func midiToHz(midi float64) float64 {
	return 440 * math.Pow(2, (midi-69)/12)
}
