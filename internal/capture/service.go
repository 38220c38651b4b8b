package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eleven-am/menu-capture/internal/audit"
	"github.com/eleven-am/menu-capture/internal/completion"
	"github.com/eleven-am/menu-capture/internal/dto"
	"github.com/eleven-am/menu-capture/internal/imaging"
	"github.com/eleven-am/menu-capture/internal/relay"
	"github.com/eleven-am/menu-capture/internal/runs"
	"github.com/eleven-am/menu-capture/internal/shared"
)

const recordTimeout = 5 * time.Second

type PathResolver interface {
	Resolve(p string) (string, error)
}

type Preprocessor interface {
	Process(ctx context.Context, path string) (*imaging.Image, error)
}

type Upstream interface {
	Ready() error
	Stream(ctx context.Context, req completion.Request) (*completion.Stream, error)
	Complete(ctx context.Context, req completion.Request) (string, error)
}

type RunRecorder interface {
	Start(ctx context.Context, run *runs.Run) error
	Finish(ctx context.Context, run *runs.Run, status runs.Status) error
}

type ArtifactIndex interface {
	Record(ctx context.Context, a *audit.Artifact) error
}

// Pending is a request whose upstream stream is open and ready to relay.
type Pending struct {
	Run    *runs.Run
	Image  *imaging.Image
	Stream *completion.Stream
}

type Service struct {
	root         PathResolver
	preprocessor Preprocessor
	upstream     Upstream
	runs         RunRecorder
	artifacts    ArtifactIndex
	logger       *slog.Logger
}

func NewService(root PathResolver, preprocessor Preprocessor, upstream Upstream, runRecorder RunRecorder, artifacts ArtifactIndex, logger *slog.Logger) *Service {
	return &Service{
		root:         root,
		preprocessor: preprocessor,
		upstream:     upstream,
		runs:         runRecorder,
		artifacts:    artifacts,
		logger:       logger.With("component", "capture"),
	}
}

// prepare validates the request and produces the upstream image. The
// credential check comes first so a disabled feature does no work at all.
func (s *Service) prepare(ctx context.Context, req dto.CaptureRequest) (*imaging.Image, error) {
	if err := s.upstream.Ready(); err != nil {
		return nil, err
	}

	path, err := s.root.Resolve(req.TargetPath)
	if err != nil {
		return nil, err
	}

	return s.preprocessor.Process(ctx, path)
}

// Open runs a request up to the point where the upstream stream is open.
// The caller must relay the stream and then call Finish.
func (s *Service) Open(ctx context.Context, req dto.CaptureRequest, mode shared.Mode) (*Pending, error) {
	start := time.Now()

	img, err := s.prepare(ctx, req)
	if err != nil {
		s.logFailure("open", req.TargetPath, start, err)
		return nil, err
	}

	run := s.startRun(ctx, mode, req.TargetPath, img)

	stream, err := s.upstream.Stream(ctx, completion.Request{
		Prompt:   completion.BuildPrompt(req.UserMessage),
		Image:    img.Bytes,
		MimeType: img.MimeType,
	})
	if err != nil {
		s.logFailure("open", req.TargetPath, start, err)
		s.finishRun(ctx, run, nil, err)
		return nil, err
	}

	return &Pending{Run: run, Image: img, Stream: stream}, nil
}

// Finish records the outcome of a relayed stream and releases it.
func (s *Service) Finish(ctx context.Context, p *Pending, session *relay.Session, err error) {
	p.Stream.Close()
	if err != nil {
		s.logFailure("relay", p.Run.TargetPath, p.Run.StartedAt, err)
	}
	s.finishRun(ctx, p.Run, session, err)
}

// Transcribe is the buffered variant of Open and relay: it waits for the
// whole upstream answer.
func (s *Service) Transcribe(ctx context.Context, req dto.CaptureRequest) (*dto.TranscriptionResponse, error) {
	start := time.Now()

	img, err := s.prepare(ctx, req)
	if err != nil {
		s.logFailure("transcribe", req.TargetPath, start, err)
		return nil, err
	}

	run := s.startRun(ctx, shared.ModeBuffered, req.TargetPath, img)

	text, err := s.upstream.Complete(ctx, completion.Request{
		Prompt:   completion.BuildPrompt(req.UserMessage),
		Image:    img.Bytes,
		MimeType: img.MimeType,
	})
	if err != nil {
		s.logFailure("transcribe", req.TargetPath, start, err)
		s.finishRun(ctx, run, nil, err)
		return nil, err
	}

	run.Fragments = 1
	run.Bytes = len(text)
	run.FirstFragmentMs = time.Since(run.StartedAt).Milliseconds()
	s.finishRun(ctx, run, nil, nil)

	return &dto.TranscriptionResponse{
		RunID:        run.ID,
		Text:         text,
		ArtifactPath: img.ArtifactPath,
	}, nil
}

func (s *Service) startRun(ctx context.Context, mode shared.Mode, target string, img *imaging.Image) *runs.Run {
	run := &runs.Run{
		ID:           shared.NewID("run_"),
		Mode:         mode,
		TargetPath:   target,
		ArtifactPath: img.ArtifactPath,
		StartedAt:    time.Now().UTC(),
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if s.runs != nil {
		if err := s.runs.Start(recCtx, run); err != nil {
			s.logger.Warn("failed to record run start", "run_id", run.ID, "error", err)
		}
	}
	if s.artifacts != nil {
		if err := s.artifacts.Record(recCtx, audit.FromImage(run.ID, img)); err != nil {
			s.logger.Warn("failed to index artifact", "run_id", run.ID, "artifact", img.ArtifactPath, "error", err)
		}
	}

	return run
}

func (s *Service) finishRun(ctx context.Context, run *runs.Run, session *relay.Session, err error) {
	if session != nil {
		run.Fragments = session.ChunkIndex
		run.Bytes = session.Bytes()
		run.FirstFragmentMs = session.FirstFragment().Milliseconds()
	}

	status := runs.StatusCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		status = runs.StatusCancelled
	default:
		status = runs.StatusFailed
		run.Error = err.Error()
	}

	if s.runs == nil {
		return
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.runs.Finish(recCtx, run, status); err != nil {
		s.logger.Warn("failed to record run result", "run_id", run.ID, "error", err)
	}
}

func (s *Service) logFailure(op, target string, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"target_path", target,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"error", err,
	}

	var pathErr *shared.InvalidPathError
	var cfgErr *shared.NotConfiguredError
	switch {
	case errors.Is(err, context.Canceled):
		s.logger.Info("request cancelled by caller", attrs...)
	case errors.As(err, &pathErr), errors.As(err, &cfgErr):
		s.logger.Warn("request rejected", attrs...)
	default:
		s.logger.Error("request failed", attrs...)
	}
}
