package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/xeptore/flaw/v8"
	"gopkg.in/matryer/try.v1"

	"github.com/xeptore/ikala/cache"
	"github.com/xeptore/ikala/config"
	"github.com/xeptore/ikala/constant"
	"github.com/xeptore/ikala/download"
	"github.com/xeptore/ikala/ikala"
	"github.com/xeptore/ikala/ikala/load"
	"github.com/xeptore/ikala/log"
	"github.com/xeptore/ikala/sliceutil"
)

const (
	flagConfigFilePath = "config"
	flagTrackID        = "track"
)

func main() {
	logger := log.NewPretty(os.Stdout).Level(zerolog.TraceLevel)
	if err := godotenv.Load(); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Msg(".env file was not found")
		} else {
			logger.Fatal().Err(err).Msg("Failed to load .env file")
		}
	}

	configFlag := &cli.StringFlag{ //nolint:exhaustruct
		Name:     flagConfigFilePath,
		Aliases:  []string{"c"},
		Usage:    "Config file path",
		Required: false,
	}

	//nolint:exhaustruct
	app := &cli.App{
		Name:    constant.Name,
		Version: constant.Version,
		Suggest: true,
		Usage:   "iKala singing voice separation corpus tool",
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:    "tracks",
				Aliases: []string{"t"},
				Usage:   "List all track IDs in manifest order",
				Action:  tracks,
			},
			//nolint:exhaustruct
			{
				Name:   "show",
				Usage:  "Load a single track and print its record",
				Action: show,
				Flags: []cli.Flag{
					configFlag,
					//nolint:exhaustruct
					&cli.StringFlag{
						Name:     flagTrackID,
						Aliases:  []string{"t"},
						Usage:    "Track ID, e.g. 10161_chorus",
						Required: true,
					},
				},
			},
			//nolint:exhaustruct
			{
				Name:    "validate",
				Aliases: []string{"v"},
				Usage:   "Check presence and checksums of every corpus file",
				Action:  validate,
				Flags:   []cli.Flag{configFlag},
			},
			//nolint:exhaustruct
			{
				Name:    "download",
				Aliases: []string{"d"},
				Usage:   "Fetch the singer ID mapping file",
				Action:  downloadMapping,
				Flags:   []cli.Flag{configFlag},
			},
			//nolint:exhaustruct
			{
				Name:   "cite",
				Usage:  "Print the corpus citation",
				Action: cite,
			},
		},
	}

	if err := app.Run(os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			return
		}
		if flawErr := new(flaw.Flaw); errors.As(err, &flawErr) {
			logger.Fatal().Func(log.Flaw(flawErr)).Msg("Application exited with flaw")
			return
		}
		logger.Fatal().Err(err).Msg("Application exited with error")
	}
}

func loadConfig(cliCtx *cli.Context, logger zerolog.Logger) (*config.Config, error) {
	cfgFilePath := cliCtx.String(flagConfigFilePath)
	cfgEnv := os.Getenv("CONFIG")
	switch {
	case cfgFilePath != "" && cfgEnv != "":
		return nil, errors.New("config file path and config environment variable are both set. specify only one")
	case cfgFilePath == "" && cfgEnv == "":
		return nil, errors.New("config file path and config environment variable are both empty. specify one")
	case cfgFilePath != "":
		logger.Debug().Str("config_file_path", cfgFilePath).Msg("Loading config from file")
		cfg, err := config.FromFile(cfgFilePath)
		if nil != err {
			return nil, fmt.Errorf("failed to load config file: %v", err)
		}
		return cfg, nil
	default:
		logger.Debug().Msg("Loading config from environment variable")
		cfg, err := config.FromString(cfgEnv)
		if nil != err {
			return nil, fmt.Errorf("failed to load config from environment variable: %v", err)
		}
		return cfg, nil
	}
}

func newLoader(cfg *config.Config, logger zerolog.Logger) *load.Loader {
	return load.New(
		logger,
		ikala.BuiltinIndex(),
		ikala.DataDirFrom(cfg.DataDir),
		cache.New(),
		download.NewClient(),
		cfg.IDMappingURL,
	)
}

func tracks(cliCtx *cli.Context) error {
	for _, trackID := range ikala.BuiltinIndex().TrackIDs() {
		fmt.Fprintln(cliCtx.App.Writer, trackID)
	}
	return nil
}

func show(cliCtx *cli.Context) (err error) {
	ctx, cancel := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.NewPretty(os.Stdout).Level(zerolog.InfoLevel)
	defer func() {
		if p := recover(); nil != p {
			logger.Error().Func(log.Panic(p)).Msg("Panic while loading track")
			err = fmt.Errorf("panic while loading track: %v", p)
		}
	}()

	cfg, err := loadConfig(cliCtx, logger)
	if nil != err {
		return err
	}

	track, err := newLoader(cfg, logger).LoadTrack(ctx, cliCtx.String(flagTrackID))
	if nil != err {
		return err
	}

	event := logger.Info().
		Str("track_id", track.TrackID).
		Str("song_id", track.SongID).
		Str("section", track.Section).
		Str("singer_id", track.SingerID).
		Str("audio_path", track.AudioPath)
	if track.F0 != nil {
		event = event.Int("f0_frames", track.F0.Len())
	}
	if track.Lyrics != nil {
		prons := sliceutil.Map(track.Lyrics.Pronunciations, func(p *string) string {
			if p == nil {
				return ""
			}
			return *p
		})
		event = event.Int("lyrics_rows", track.Lyrics.Len()).Strs("pronunciations", prons)
	}
	event.Msg("Loaded track")
	return nil
}

func validate(cliCtx *cli.Context) error {
	logger := log.NewPretty(os.Stdout).Level(zerolog.InfoLevel)

	cfg, err := loadConfig(cliCtx, logger)
	if nil != err {
		return err
	}

	report, err := ikala.Validate(ikala.BuiltinIndex(), ikala.DataDirFrom(cfg.DataDir))
	if nil != err {
		return err
	}
	if report.OK() {
		logger.Info().Msg("Corpus is complete and every checksum matches")
		return nil
	}

	logger.Warn().
		Strs("missing_files", report.MissingFiles).
		Strs("invalid_checksums", report.InvalidChecksums).
		Msg("Corpus validation found problems")
	if len(report.MissingFiles) > 0 {
		// The corpus audio is not downloadable. Only the singer ID mapping can
		// be fetched; the rest has to be obtained from the dataset authors and
		// placed under the root data directory by hand.
		fmt.Fprintf(cliCtx.App.Writer, `
The iKala corpus itself is not available for download. If you have a copy,
place its contents into a folder called iKala with the following structure:
    > iKala/
        > Lyrics/
        > PitchLabel/
        > Wavfile/
and copy the iKala folder to %s
`, cfg.DataDir)
	}
	return nil
}

func downloadMapping(cliCtx *cli.Context) error {
	ctx, cancel := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.NewPretty(os.Stdout).Level(zerolog.InfoLevel)

	cfg, err := loadConfig(cliCtx, logger)
	if nil != err {
		return err
	}

	destPath := ikala.DataDirFrom(cfg.DataDir).IDMappingPath()
	client := download.NewClient()
	err = try.Do(func(attempt int) (bool, error) {
		err := client.FetchIDMapping(ctx, cfg.IDMappingURL, destPath)
		if nil != err && attempt < try.MaxRetries {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Failed to fetch singer ID mapping, retrying")
		}
		return attempt < try.MaxRetries, err
	})
	if nil != err {
		return err
	}

	logger.Info().Str("dest", destPath).Msg("Singer ID mapping downloaded")
	return nil
}

func cite(cliCtx *cli.Context) error {
	fmt.Fprintf(cliCtx.App.Writer, "%s\n", ikala.Citation)
	return nil
}
