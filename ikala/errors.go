package ikala

import "errors"

var (
	// ErrInvalidTrackID is returned when a track ID has no manifest entry.
	ErrInvalidTrackID = errors.New("invalid track ID")
	// ErrUnknownSinger is returned when a track's song ID is missing from the
	// singer ID mapping. This is a corpus integrity problem, not a caller bug.
	ErrUnknownSinger = errors.New("unknown singer")
	// ErrMalformedFile is returned when an annotation or mapping file exists
	// but its content cannot be parsed.
	ErrMalformedFile = errors.New("malformed file")
	// ErrAudioDecode is returned when an audio file is absent, unreadable, or
	// does not carry the expected channel layout.
	ErrAudioDecode = errors.New("audio decode failed")
)
