package ikala

import (
	"strings"
)

// Track is one song section of the corpus, assembled from the manifest, the
// parsed annotation files, and the singer ID mapping. Values are complete
// once constructed; nil F0 or Lyrics means the annotation file is not on
// disk. AudioPath points at the undecoded stereo waveform and its existence
// is only guaranteed after a clean validation pass.
type Track struct {
	TrackID   string
	SongID    string
	Section   string
	SingerID  string
	AudioPath string
	F0        *F0Series
	Lyrics    *LyricsSeries
}

// SplitTrackID splits a track ID of the form <song_id>_<section> on its
// first underscore.
func SplitTrackID(trackID string) (songID, section string) {
	songID, section, _ = strings.Cut(trackID, "_")
	return songID, section
}
