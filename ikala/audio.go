package ikala

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/xeptore/ikala/mathutil"
)

const (
	instrumentalChannel = 0
	vocalChannel        = 1
	stereoChannels      = 2
)

// Audio holds decoded waveform samples at the file's native sample rate.
// Samples are normalized to [-1, 1].
type Audio struct {
	Samples    []float64
	SampleRate int
}

// InstrumentalAudio decodes the track's waveform and returns its
// instrumental channel (channel 0).
func (t *Track) InstrumentalAudio() (*Audio, error) {
	return loadChannel(t.AudioPath, instrumentalChannel)
}

// VocalAudio decodes the track's waveform and returns its vocal channel
// (channel 1).
func (t *Track) VocalAudio() (*Audio, error) {
	return loadChannel(t.AudioPath, vocalChannel)
}

// MixAudio decodes the track's waveform and returns a mono downmix, the mean
// of all channels per frame.
func (t *Track) MixAudio() (*Audio, error) {
	buf, err := decodeWAV(t.AudioPath)
	if nil != err {
		return nil, err
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	scale := sampleScale(buf.SourceBitDepth)
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) * scale
		}
		samples[i] = mathutil.Clamp(sum/float64(channels), -1, 1)
	}
	return &Audio{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

func loadChannel(path string, channel int) (*Audio, error) {
	buf, err := decodeWAV(path)
	if nil != err {
		return nil, err
	}

	if got := buf.Format.NumChannels; got != stereoChannels {
		return nil, fmt.Errorf("%w: %q has %d channels, expected %d", ErrAudioDecode, path, got, stereoChannels)
	}

	frames := len(buf.Data) / stereoChannels
	scale := sampleScale(buf.SourceBitDepth)
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		samples[i] = mathutil.Clamp(float64(buf.Data[i*stereoChannels+channel])*scale, -1, 1)
	}
	return &Audio{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

func decodeWAV(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: audio file %q does not exist", ErrAudioDecode, path)
		}
		return nil, fmt.Errorf("%w: failed to open audio file %q: %v", ErrAudioDecode, path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if nil != err {
		return nil, fmt.Errorf("%w: failed to decode audio file %q: %v", ErrAudioDecode, path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: audio file %q carries no samples", ErrAudioDecode, path)
	}
	return buf, nil
}

func sampleScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return 1 / float64(int64(1)<<(bitDepth-1))
}
