package load_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/ikala/cache"
	"github.com/xeptore/ikala/ikala"
	"github.com/xeptore/ikala/ikala/load"
)

const mappingURL = "http://example.invalid/id_mapping.txt"

// stubFetcher plays the download collaborator: it writes a canned mapping
// file and counts how often it gets asked to.
type stubFetcher struct {
	content string
	err     error
	calls   int
}

func (f *stubFetcher) FetchIDMapping(_ context.Context, _, destPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(f.content), 0o644)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixtureIndex(t *testing.T, trackIDs ...string) *ikala.Index {
	t.Helper()
	manifest := "{"
	for i, trackID := range trackIDs {
		if i > 0 {
			manifest += ","
		}
		manifest += fmt.Sprintf(`
  %q: {
    "audio": ["iKala/Wavfile/%s.wav", "00"],
    "pitch": ["iKala/PitchLabel/%s.pv", "00"],
    "lyrics": ["iKala/Lyrics/%s.lab", "00"]
  }`, trackID, trackID, trackID, trackID)
	}
	manifest += "\n}"
	idx, err := ikala.ParseIndex([]byte(manifest))
	require.NoError(t, err)
	return idx
}

func newLoader(t *testing.T, idx *ikala.Index, dir ikala.DataDir, fetcher load.Fetcher) *load.Loader {
	t.Helper()
	return load.New(zerolog.Nop(), idx, dir, cache.New(), fetcher, mappingURL)
}

func TestLoadTrack(t *testing.T) {
	t.Parallel()

	t.Run("AssemblesCompleteRecord", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		dir := ikala.DataDirFrom(t.TempDir())
		writeFile(t, dir.Resolve("iKala/PitchLabel/10161_chorus.pv"), "0\n69\n")
		writeFile(t, dir.Resolve("iKala/Lyrics/10161_chorus.lab"), "1000 2000 la l a\n")
		writeFile(t, dir.IDMappingPath(), "singer\tsong\n1\t10161\n")

		fetcher := &stubFetcher{} //nolint:exhaustruct
		track, err := newLoader(t, idx, dir, fetcher).LoadTrack(context.Background(), "10161_chorus")
		require.NoError(t, err)

		assert.Equal(t, "10161_chorus", track.TrackID)
		assert.Equal(t, track.TrackID, track.SongID+"_"+track.Section)
		assert.Equal(t, "1", track.SingerID)
		assert.Equal(t, dir.Resolve("iKala/Wavfile/10161_chorus.wav"), track.AudioPath)
		require.NotNil(t, track.F0)
		assert.Equal(t, 2, track.F0.Len())
		require.NotNil(t, track.Lyrics)
		assert.Equal(t, 1, track.Lyrics.Len())
		assert.Zero(t, fetcher.calls, "mapping file exists locally, no download expected")
	})

	t.Run("AbsentAnnotationsYieldNilSeries", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		dir := ikala.DataDirFrom(t.TempDir())
		writeFile(t, dir.IDMappingPath(), "singer\tsong\n1\t10161\n")

		track, err := newLoader(t, idx, dir, &stubFetcher{}).LoadTrack(context.Background(), "10161_chorus") //nolint:exhaustruct
		require.NoError(t, err)
		assert.Nil(t, track.F0)
		assert.Nil(t, track.Lyrics)
	})

	t.Run("UnknownTrackIDWithoutIO", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		// A data dir that does not exist: any file I/O would fail loudly.
		dir := ikala.DataDirFrom(filepath.Join(t.TempDir(), "missing"))

		fetcher := &stubFetcher{} //nolint:exhaustruct
		track, err := newLoader(t, idx, dir, fetcher).LoadTrack(context.Background(), "99999_chorus")
		assert.Nil(t, track)
		assert.ErrorIs(t, err, ikala.ErrInvalidTrackID)
		assert.Zero(t, fetcher.calls)
	})

	t.Run("UnknownSinger", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		dir := ikala.DataDirFrom(t.TempDir())
		writeFile(t, dir.IDMappingPath(), "singer\tsong\n1\t77777\n")

		track, err := newLoader(t, idx, dir, &stubFetcher{}).LoadTrack(context.Background(), "10161_chorus") //nolint:exhaustruct
		assert.Nil(t, track)
		assert.ErrorIs(t, err, ikala.ErrUnknownSinger)
	})

	t.Run("MalformedAnnotationAborts", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		dir := ikala.DataDirFrom(t.TempDir())
		writeFile(t, dir.Resolve("iKala/PitchLabel/10161_chorus.pv"), "sixty\n")
		writeFile(t, dir.IDMappingPath(), "singer\tsong\n1\t10161\n")

		track, err := newLoader(t, idx, dir, &stubFetcher{}).LoadTrack(context.Background(), "10161_chorus") //nolint:exhaustruct
		assert.Nil(t, track)
		assert.ErrorIs(t, err, ikala.ErrMalformedFile)
	})
}

func TestEnsureMetadata(t *testing.T) {
	t.Parallel()

	t.Run("DownloadsOnceForSameRoot", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		dir := ikala.DataDirFrom(t.TempDir())
		fetcher := &stubFetcher{content: "singer\tsong\n1\t10161\n"} //nolint:exhaustruct
		loader := newLoader(t, idx, dir, fetcher)

		first, err := loader.EnsureMetadata(context.Background())
		require.NoError(t, err)
		second, err := loader.EnsureMetadata(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, fetcher.calls)
		assert.Same(t, first, second)
	})

	t.Run("DistinctRootsLoadIndependently", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		shared := cache.New()
		fetcher := &stubFetcher{content: "singer\tsong\n1\t10161\n"} //nolint:exhaustruct

		dirA := ikala.DataDirFrom(t.TempDir())
		dirB := ikala.DataDirFrom(t.TempDir())
		loaderA := load.New(zerolog.Nop(), idx, dirA, shared, fetcher, mappingURL)
		loaderB := load.New(zerolog.Nop(), idx, dirB, shared, fetcher, mappingURL)

		metaA, err := loaderA.EnsureMetadata(context.Background())
		require.NoError(t, err)
		metaB, err := loaderB.EnsureMetadata(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, fetcher.calls)
		assert.Equal(t, dirA, metaA.DataDir)
		assert.Equal(t, dirB, metaB.DataDir)

		// Back to the first root: still cached.
		_, err = loaderA.EnsureMetadata(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, fetcher.calls)
	})

	t.Run("FetchFailureIsNotCached", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus")
		dir := ikala.DataDirFrom(t.TempDir())
		fetcher := &stubFetcher{content: "singer\tsong\n1\t10161\n", err: errors.New("network down")}
		loader := newLoader(t, idx, dir, fetcher)

		_, err := loader.EnsureMetadata(context.Background())
		require.Error(t, err)

		fetcher.err = nil
		meta, err := loader.EnsureMetadata(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, fetcher.calls)
		assert.Equal(t, 1, meta.Len())
	})
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	t.Run("BestEffortAcrossBadTracks", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "10161_chorus", "21025_verse")
		dir := ikala.DataDirFrom(t.TempDir())
		writeFile(t, dir.Resolve("iKala/PitchLabel/10161_chorus.pv"), "69\n")
		// The second track's pitch file is malformed; its load fails but must
		// not take the first track down with it.
		writeFile(t, dir.Resolve("iKala/PitchLabel/21025_verse.pv"), "not-midi\n")
		writeFile(t, dir.IDMappingPath(), "singer\tsong\n1\t10161\n2\t21025\n")

		tracks, report, err := newLoader(t, idx, dir, &stubFetcher{}).LoadAll(context.Background()) //nolint:exhaustruct
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.False(t, report.OK(), "audio and lyrics files are absent")

		require.Contains(t, tracks, "10161_chorus")
		assert.NotContains(t, tracks, "21025_verse")
		assert.Equal(t, 1, tracks["10161_chorus"].F0.Len())
	})

	t.Run("OrderAndCompleteness", func(t *testing.T) {
		t.Parallel()
		idx := fixtureIndex(t, "30000_verse", "10161_chorus")
		dir := ikala.DataDirFrom(t.TempDir())
		writeFile(t, dir.IDMappingPath(), "singer\tsong\n1\t10161\n2\t30000\n")

		loader := newLoader(t, idx, dir, &stubFetcher{}) //nolint:exhaustruct
		assert.Equal(t, []string{"30000_verse", "10161_chorus"}, loader.TrackIDs())

		tracks, _, err := loader.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Len(t, tracks, 2)
	})
}
