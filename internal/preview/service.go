package preview

import (
	"context"
	"time"

	"github.com/JonMunkholm/fieldpreview/internal/history"
	"github.com/JonMunkholm/fieldpreview/internal/logging"
	"github.com/google/uuid"
)

// historyTimeout bounds how long recording a finished preview may take.
const historyTimeout = 5 * time.Second

// Options tune the preview pipeline.
type Options struct {
	// SampleSize caps the records per preview; at most SampleSize (10).
	SampleSize int
	// FetchTimeout bounds all outbound calls of one preview. Zero means
	// only the request context applies.
	FetchTimeout time.Duration
	// MaxJSONBytes caps ArcGIS response bodies.
	MaxJSONBytes int64
	// UnionFields reports every key seen across sampled records instead of
	// the keys of the last record.
	UnionFields bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		SampleSize:   SampleSize,
		FetchTimeout: 30 * time.Second,
		MaxJSONBytes: 10 << 20,
	}
}

// Service produces source previews.
type Service struct {
	fetcher Fetcher
	limiter *Limiter
	history history.Recorder
	opts    Options
}

// NewService wires a preview service. A nil limiter means no concurrency
// limit; a nil recorder disables history.
func NewService(fetcher Fetcher, limiter *Limiter, rec history.Recorder, opts Options) *Service {
	if opts.SampleSize <= 0 || opts.SampleSize > SampleSize {
		opts.SampleSize = SampleSize
	}
	if opts.MaxJSONBytes <= 0 {
		opts.MaxJSONBytes = DefaultOptions().MaxJSONBytes
	}
	return &Service{
		fetcher: fetcher,
		limiter: limiter,
		history: rec,
		opts:    opts,
	}
}

// Preview classifies source and samples it. It never fails: problems with
// the source are reported through the result's status and diagnostics.
func (s *Service) Preview(ctx context.Context, source string) *Result {
	start := time.Now()
	desc := Detect(source)

	logger := logging.WithFields(ctx,
		"source", source,
		"type", desc.Format,
		"compression", desc.Compression,
	)
	logger.Debug("preview started")

	var res *Result
	if desc.Supported() {
		res = s.extract(ctx, desc)
	} else {
		res = Assemble(desc, nil, nil)
	}

	res.PreviewID = uuid.New().String()
	res.SampledAt = start.UTC()
	duration := time.Since(start)

	for _, step := range res.Diagnostics {
		if !step.OK {
			logger.Warn("preview step failed",
				"step", step.Step,
				"code", step.Code,
				"error", step.Err,
			)
		}
	}
	logger.Info("preview completed",
		"preview_id", res.PreviewID,
		"status", res.Status,
		"fields", len(res.Fields),
		"records", len(res.Results),
		"duration_ms", duration.Milliseconds(),
	)

	s.record(ctx, res, source, duration)
	return res
}

// extract runs the extractor for desc under the concurrency limit and the
// fetch timeout.
func (s *Service) extract(ctx context.Context, desc SourceDescriptor) *Result {
	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return Assemble(desc, nil, []StepResult{StepResult{Step: "limiter"}.fail(err)})
		}
		defer s.limiter.Release()
	}

	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	acc := NewAccumulator(s.opts.SampleSize, s.opts.UnionFields)
	steps, _ := dispatch(ctx, &job{
		desc:    desc,
		fetcher: s.fetcher,
		acc:     acc,
		opts:    s.opts,
	})
	return Assemble(desc, acc, steps)
}

// record stores a history entry. Failures are logged and otherwise ignored.
func (s *Service) record(ctx context.Context, res *Result, source string, duration time.Duration) {
	if s.history == nil {
		return
	}

	ip, ua := ClientFromContext(ctx)
	entry := history.Entry{
		ID:          res.PreviewID,
		Source:      source,
		Type:        string(res.Type),
		Compression: string(res.Compression),
		Status:      string(res.Status),
		FieldCount:  len(res.Fields),
		RecordCount: len(res.Results),
		DurationMs:  duration.Milliseconds(),
		ClientIP:    ip,
		UserAgent:   ua,
		CreatedAt:   res.SampledAt,
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := s.history.Record(recordCtx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record preview history",
			"preview_id", res.PreviewID,
			"error", err,
		)
	}
}

// LimiterStatus reports the concurrency limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	if s.limiter == nil {
		return LimiterStatus{}
	}
	return s.limiter.Status()
}

// WaitForPreviews blocks until running previews finish or ctx ends.
func (s *Service) WaitForPreviews(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.WaitForDrain(ctx)
}
