// Package load assembles complete track records from the manifest, the
// on-disk annotation files, and the singer ID mapping.
package load

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/xeptore/ikala/cache"
	"github.com/xeptore/ikala/ikala"
)

// Fetcher downloads the singer ID mapping file when it is absent locally.
type Fetcher interface {
	FetchIDMapping(ctx context.Context, mappingURL, destPath string) error
}

// Loader reads tracks out of one root data directory. Loaders for different
// roots may share a single cache; metadata is cached per root.
type Loader struct {
	logger     zerolog.Logger
	idx        *ikala.Index
	dir        ikala.DataDir
	cache      *cache.Cache
	fetcher    Fetcher
	mappingURL string
}

func New(
	logger zerolog.Logger,
	idx *ikala.Index,
	dir ikala.DataDir,
	c *cache.Cache,
	fetcher Fetcher,
	mappingURL string,
) *Loader {
	return &Loader{
		logger:     logger,
		idx:        idx,
		dir:        dir,
		cache:      c,
		fetcher:    fetcher,
		mappingURL: mappingURL,
	}
}

// TrackIDs lists every track ID in manifest order.
func (l *Loader) TrackIDs() []string {
	return l.idx.TrackIDs()
}

// Validate runs a full presence and checksum pass over the manifest.
func (l *Loader) Validate() (*ikala.Report, error) {
	return ikala.Validate(l.idx, l.dir)
}

// EnsureMetadata returns the singer ID mapping for the loader's root
// directory, downloading and parsing it on first use. Subsequent calls for
// the same root hit the cache.
func (l *Loader) EnsureMetadata(ctx context.Context) (*ikala.Metadata, error) {
	item, err := l.cache.Metadata.Fetch(string(l.dir), cache.DefaultMetadataTTL, func() (*ikala.Metadata, error) {
		return l.loadMetadata(ctx)
	})
	if nil != err {
		return nil, err
	}
	return item.Value(), nil
}

func (l *Loader) loadMetadata(ctx context.Context) (*ikala.Metadata, error) {
	mappingPath := l.dir.IDMappingPath()
	if _, err := os.Stat(mappingPath); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat singer ID mapping file %q: %v", mappingPath, err)
		}
		l.logger.Debug().Str("url", l.mappingURL).Str("dest", mappingPath).Msg("Singer ID mapping file is absent, downloading")
		if err := l.fetcher.FetchIDMapping(ctx, l.mappingURL, mappingPath); nil != err {
			return nil, err
		}
	}
	return ikala.LoadMetadata(l.dir)
}

// LoadTrack assembles the record for one track ID. Unknown IDs fail with
// ikala.ErrInvalidTrackID before any file I/O. Absent annotation files leave
// the corresponding record fields nil; a song ID missing from the singer
// mapping fails with ikala.ErrUnknownSinger.
func (l *Loader) LoadTrack(ctx context.Context, trackID string) (*ikala.Track, error) {
	entry, ok := l.idx.Entry(trackID)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not in the manifest", ikala.ErrInvalidTrackID, trackID)
	}

	meta, err := l.EnsureMetadata(ctx)
	if nil != err {
		return nil, err
	}

	f0, err := ikala.LoadF0(l.dir.Resolve(entry.Pitch.Path))
	if nil != err {
		return nil, err
	}
	lyrics, err := ikala.LoadLyrics(l.dir.Resolve(entry.Lyrics.Path))
	if nil != err {
		return nil, err
	}

	songID, section := ikala.SplitTrackID(trackID)
	singerID, ok := meta.SingerID(songID)
	if !ok {
		return nil, fmt.Errorf("%w: song %q has no entry in the singer ID mapping", ikala.ErrUnknownSinger, songID)
	}

	return &ikala.Track{
		TrackID:   trackID,
		SongID:    songID,
		Section:   section,
		SingerID:  singerID,
		AudioPath: l.dir.Resolve(entry.Audio.Path),
		F0:        f0,
		Lyrics:    lyrics,
	}, nil
}

// LoadAll validates the corpus, then loads every track best-effort: tracks
// that fail to load are logged and skipped so one bad file does not block
// the rest. Callers that care about completeness must inspect the report.
func (l *Loader) LoadAll(ctx context.Context) (map[string]*ikala.Track, *ikala.Report, error) {
	report, err := l.Validate()
	if nil != err {
		return nil, nil, err
	}
	if !report.OK() {
		l.logger.Warn().
			Int("missing_files", len(report.MissingFiles)).
			Int("invalid_checksums", len(report.InvalidChecksums)).
			Msg("Corpus validation found problems, loading anyway")
	}

	tracks := make(map[string]*ikala.Track, l.idx.Len())
	for _, trackID := range l.idx.TrackIDs() {
		track, err := l.LoadTrack(ctx, trackID)
		if nil != err {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, err
			}
			l.logger.Warn().Err(err).Str("track_id", trackID).Msg("Failed to load track, skipping")
			continue
		}
		tracks[trackID] = track
	}
	return tracks, report, nil
}
