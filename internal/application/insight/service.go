// Package insight produces the AI-written overview of the filtered
// cooperatives.  Failures stay inside the insight result and never affect the
// rest of the dashboard state.
package insight

import (
	"context"
	"strings"
	"time"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// User-facing messages.
const (
	MessageNoData      = "Aucune donnée disponible pour l'analyse."
	MessageUnavailable = "Le service d'analyse est temporairement indisponible. Vérifiez votre configuration API."
	MessageEmpty       = "Erreur de génération."
)

// Summarizer turns a prompt into Markdown text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// State is the lifecycle of one insight request.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Report is a finished generation.  Text always holds something displayable,
// including on failure.
type Report struct {
	Text        string    `json:"text"`
	Count       int       `json:"count"`
	Sampled     int       `json:"sampled"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Options tune the service.
type Options struct {
	SampleSize int
	Timeout    time.Duration
	// Observe receives "ok", "empty", "no_data" or "error" and the elapsed time.
	Observe func(outcome string, elapsed time.Duration)
}

// Service generates reports.  It is safe for concurrent use.
type Service struct {
	summarizer Summarizer
	opts       Options
	logger     logging.Logger
	now        func() time.Time
}

// NewService returns a Service.  A nil summarizer yields a service that
// always reports the unavailable message.
func NewService(s Summarizer, opts Options, logger logging.Logger) *Service {
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{summarizer: s, opts: opts, logger: logger.Named("insight"), now: time.Now}
}

// Available reports whether a summarizer is configured.
func (s *Service) Available() bool { return s.summarizer != nil }

// Generate summarises features.  On failure the returned report still
// carries the message to display, alongside an AI_* error.
func (s *Service) Generate(ctx context.Context, features []feature.Feature) (rep Report, err error) {
	start := s.now()
	rep.Count = len(features)
	outcome := "error"
	defer func() {
		rep.GeneratedAt = s.now()
		if s.opts.Observe != nil {
			s.opts.Observe(outcome, rep.GeneratedAt.Sub(start))
		}
	}()

	if len(features) == 0 {
		outcome = "no_data"
		rep.Text = MessageNoData
		return rep, apperrors.New(apperrors.ErrCodeAIInputInvalid, "no cooperatives to analyse")
	}
	if s.summarizer == nil {
		rep.Text = MessageUnavailable
		return rep, apperrors.New(apperrors.ErrCodeAIModelNotAvailable, "summarizer not configured")
	}

	sample := BuildSample(features, s.opts.SampleSize)
	rep.Sampled = len(sample)
	prompt, perr := BuildPrompt(len(features), sample)
	if perr != nil {
		rep.Text = MessageUnavailable
		return rep, apperrors.Wrap(perr, apperrors.ErrCodeAIInputInvalid, "build prompt")
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	text, serr := s.summarizer.Summarize(ctx, prompt)
	if serr != nil {
		s.logger.Warn("insight generation failed",
			logging.Int("count", rep.Count),
			logging.Int("sampled", rep.Sampled),
			logging.Err(serr))
		rep.Text = MessageUnavailable
		return rep, apperrors.Wrap(serr, apperrors.ErrCodeAIInferenceFailed, "generate insight")
	}
	if strings.TrimSpace(text) == "" {
		outcome = "empty"
		rep.Text = MessageEmpty
		return rep, nil
	}
	outcome = "ok"
	rep.Text = text
	s.logger.Debug("insight generated", logging.Int("count", rep.Count), logging.Int("chars", len(text)))
	return rep, nil
}
