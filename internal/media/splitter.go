package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spigell/interview-grader/internal/payload"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultFfmpegPath = "ffmpeg"

var (
	ErrUnsupportedHost = errors.New("url does not point to a downloadable video host")
	ErrMalformedURL    = errors.New("drive url does not contain a file id")
	ErrDownloadFailed  = errors.New("video file is missing after download")
)

// Pair holds the demuxed artifacts for one interview answer. Empty paths
// mean the corresponding artifact could not be produced; downstream stages
// must treat them as sentinels, not errors.
type Pair struct {
	AudioPath string
	VideoPath string
}

// Downloader fetches a remote file identified by a host-specific id.
type Downloader interface {
	Download(ctx context.Context, fileID, dest string) error
}

// Runner invokes an external command, discarding its output. Success of a
// demux run is inferred from output file existence, not from the exit code.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

// Splitter downloads interview recordings and demuxes each one into an
// audio-only file and a muted video copy. A failure for one entry never
// aborts the batch: the entry is recorded as an empty Pair and processing
// continues, so the output stays index-aligned with the input links.
type Splitter struct {
	downloader Downloader
	runner     Runner
	logger     *zap.Logger
	ffmpegPath string

	scratchDir string
	audioDir   string
	videoDir   string
}

// SplitterOption tweaks a Splitter at construction time.
type SplitterOption func(*Splitter)

// WithRunner substitutes the external process runner. Used by tests.
func WithRunner(r Runner) SplitterOption {
	return func(s *Splitter) { s.runner = r }
}

// WithFfmpegPath overrides the ffmpeg binary location.
func WithFfmpegPath(path string) SplitterOption {
	return func(s *Splitter) {
		if path != "" {
			s.ffmpegPath = path
		}
	}
}

// WithScratchDir places the scratch directories under dir instead of the
// system temp directory.
func WithScratchDir(dir string) SplitterOption {
	return func(s *Splitter) {
		if dir != "" {
			s.scratchDir = dir
		}
	}
}

// NewSplitter creates a splitter with a private per-run scratch location.
func NewSplitter(downloader Downloader, logger *zap.Logger, opts ...SplitterOption) (*Splitter, error) {
	s := &Splitter{
		downloader: downloader,
		runner:     execRunner{},
		logger:     logger,
		ffmpegPath: defaultFfmpegPath,
		scratchDir: filepath.Join(os.TempDir(), "interview-grader-"+uuid.NewString()),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.audioDir = filepath.Join(s.scratchDir, "audios")
	s.videoDir = filepath.Join(s.scratchDir, "videos_mute")

	for _, dir := range []string{s.audioDir, s.videoDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating scratch dir %q: %w", dir, err)
		}
	}

	logger.Debug("scratch directory ready", zap.String("path", s.scratchDir))

	return s, nil
}

// ScratchDir returns the per-run scratch location holding the artifacts.
func (s *Splitter) ScratchDir() string {
	return s.scratchDir
}

// Split processes the links in the order given (the canonical index) and
// returns one Pair per link.
func (s *Splitter) Split(ctx context.Context, links []payload.VideoLink) []Pair {
	pairs := make([]Pair, 0, len(links))

	for _, link := range links {
		pair, err := s.splitOne(ctx, link)
		if err != nil {
			s.logger.Warn("skipping video",
				zap.Int("position_id", link.PositionID),
				zap.Error(err),
			)
		}

		pairs = append(pairs, pair)
	}

	return pairs
}

func (s *Splitter) splitOne(ctx context.Context, link payload.VideoLink) (Pair, error) {
	fileID, err := driveFileID(link.URL)
	if err != nil {
		return Pair{}, err
	}

	rawPath := filepath.Join(s.scratchDir, fmt.Sprintf("raw_%d.mp4", link.PositionID))

	if err := s.downloader.Download(ctx, fileID, rawPath); err != nil {
		return Pair{}, fmt.Errorf("downloading %q: %w", fileID, err)
	}

	if _, err := os.Stat(rawPath); err != nil {
		return Pair{}, ErrDownloadFailed
	}
	// The raw download must not accumulate across a large batch.
	defer os.Remove(rawPath)

	var pair Pair

	audioOut := filepath.Join(s.audioDir, fmt.Sprintf("audio_%d.mp3", link.PositionID))
	if err := s.runner.Run(ctx, s.ffmpegPath,
		"-y", "-i", rawPath, "-vn", "-acodec", "libmp3lame", "-ab", "192k", audioOut,
	); err != nil {
		s.logger.Debug("audio extraction command failed",
			zap.Int("position_id", link.PositionID),
			zap.Error(err),
		)
	}
	if _, err := os.Stat(audioOut); err == nil {
		pair.AudioPath = audioOut
	}

	videoOut := filepath.Join(s.videoDir, fmt.Sprintf("video_%d_mute.mp4", link.PositionID))
	if err := s.runner.Run(ctx, s.ffmpegPath,
		"-y", "-i", rawPath, "-c", "copy", "-an", videoOut,
	); err != nil {
		s.logger.Debug("audio strip command failed",
			zap.Int("position_id", link.PositionID),
			zap.Error(err),
		)
	}
	if _, err := os.Stat(videoOut); err == nil {
		pair.VideoPath = videoOut
	}

	if pair.AudioPath == "" && pair.VideoPath == "" {
		return pair, fmt.Errorf("demuxing produced no artifacts for %q", link.URL)
	}

	return pair, nil
}

// driveFileID extracts the file identifier from a drive sharing URL of the
// /file/d/<id>/... form. Recognized hosts without a usable id and all other
// hosts are reported as unsupported so the caller records a sentinel
// without attempting a download.
func driveFileID(rawURL string) (string, error) {
	if !strings.Contains(rawURL, "drive.google.com") {
		return "", ErrUnsupportedHost
	}

	_, rest, found := strings.Cut(rawURL, "/d/")
	if !found {
		return "", ErrMalformedURL
	}

	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}

	if rest == "" {
		return "", ErrMalformedURL
	}

	return rest, nil
}
