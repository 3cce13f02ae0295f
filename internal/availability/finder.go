package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/LamPham123/CalPal.ai/internal/instrumentation"
	"github.com/LamPham123/CalPal.ai/internal/logging"
)

// BusyProvider returns the busy intervals of one participant inside window,
// gathered from every calendar the participant owns.
type BusyProvider interface {
	BusyIntervals(ctx context.Context, participantID string, window Window) ([]Interval, error)
}

// BusyProviderFunc adapts an ordinary function to the BusyProvider interface.
type BusyProviderFunc func(ctx context.Context, participantID string, window Window) ([]Interval, error)

// BusyIntervals calls f.
func (f BusyProviderFunc) BusyIntervals(ctx context.Context, participantID string, window Window) ([]Interval, error) {
	return f(ctx, participantID, window)
}

// Recorder receives search metrics. *instrumentation.Metrics implements it.
type Recorder interface {
	RecordBusyFetch(ctx context.Context, participantID, status string, duration time.Duration)
	RecordMalformedIntervals(ctx context.Context, count int)
	RecordSlotSearch(ctx context.Context, status string, found int, duration time.Duration)
}

// Options configure a Finder. Zero values select the package defaults.
type Options struct {
	// Granularity is the step between candidate slot starts.
	Granularity time.Duration

	// MaxResults caps results when a Request does not set its own cap.
	MaxResults int

	// FetchTimeout bounds each participant's fetch.
	FetchTimeout time.Duration

	// FetchConcurrency bounds the number of fetches in flight.
	FetchConcurrency int

	// Limiter, when set, is waited on before every fetch.
	Limiter *rate.Limiter

	Logger  logging.Logger
	Metrics Recorder
}

// Finder finds common free meeting slots for a group of participants.
// It is safe for concurrent use.
type Finder struct {
	provider BusyProvider
	opts     Options
}

// NewFinder returns a Finder that reads busy data from provider.
func NewFinder(provider BusyProvider, opts Options) *Finder {
	if opts.Granularity == 0 {
		opts.Granularity = DefaultGranularity
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = DefaultFetchConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	return &Finder{provider: provider, opts: opts}
}

// FindBestSlots validates req, fetches every participant's busy intervals
// concurrently and returns the ranked common slots.
//
// Invalid input is rejected before any fetch. If any participant's fetch
// fails the whole call fails with a *FetchError; no partial result is
// returned. A search that finds nothing returns an empty Slots list and a
// nil error.
func (f *Finder) FindBestSlots(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}

	ctx, span := instrumentation.StartSpan(ctx, "availability.find_best_slots",
		instrumentation.NewSpanAttributeBuilder().
			WithSearch(requestID, len(req.ParticipantIDs), req.DurationMinutes).
			Build()...)
	defer span.End()

	logger := f.logger(requestID)

	result, err := f.find(ctx, req, logger)
	status := searchStatus(result, err)
	found := 0
	if result != nil {
		found = result.TotalFound
	}
	f.opts.Metrics.RecordSlotSearch(ctx, status, found, time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		logger.Warn("slot search failed",
			logging.KeyStatus, status,
			logging.KeyDuration, time.Since(start),
			logging.KeyError, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrSlotsFound, result.TotalFound))
	instrumentation.SetSpanSuccess(span)
	logger.Info("slot search finished",
		logging.KeyStatus, status,
		"participants", len(req.ParticipantIDs),
		"slots_found", result.TotalFound,
		"slots_returned", len(result.Slots),
		logging.KeyDuration, time.Since(start))
	return result, nil
}

func (f *Finder) find(ctx context.Context, req Request, logger logging.Logger) (*Result, error) {
	if err := f.validate(req); err != nil {
		return nil, err
	}

	busy, err := f.fetchAll(ctx, req.ParticipantIDs, req.Window, logger)
	if err != nil {
		return nil, err
	}

	result, err := Compute(busy, req, f.opts.Granularity, f.maxResults(req))
	if err != nil {
		return nil, err
	}
	if result.DiscardedIntervals > 0 {
		f.opts.Metrics.RecordMalformedIntervals(ctx, result.DiscardedIntervals)
		logger.Warn("discarded malformed busy intervals", "count", result.DiscardedIntervals)
	}
	return result, nil
}

func (f *Finder) validate(req Request) error {
	if err := req.Window.Validate(); err != nil {
		return err
	}
	if req.DurationMinutes <= 0 {
		return fmt.Errorf("%w: %d minutes must be positive", ErrInvalidDuration, req.DurationMinutes)
	}
	if err := validateGranularity(f.opts.Granularity); err != nil {
		return err
	}
	return req.Preferences.Validate()
}

func (f *Finder) maxResults(req Request) int {
	if req.MaxResults > 0 {
		return req.MaxResults
	}
	return f.opts.MaxResults
}

// fetchAll fetches busy intervals for every participant. The returned slice
// is indexed like ids, independent of the order in which fetches complete.
func (f *Finder) fetchAll(ctx context.Context, ids []string, window Window, logger logging.Logger) ([][]Interval, error) {
	busy := make([][]Interval, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.FetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			intervals, err := f.FetchBusy(gctx, id, window)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("busy fetch failed",
					logging.KeyParticipantHash, logging.AnonymizeID(id),
					logging.KeyError, err.Error())
				return &FetchError{Participant: id, Err: err}
			}
			busy[i] = intervals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return busy, nil
}

// FetchBusy reads one participant's busy intervals the way a search does:
// it waits on the shared rate limiter, bounds the call by the fetch timeout
// and records the fetch metric.
func (f *Finder) FetchBusy(ctx context.Context, id string, window Window) ([]Interval, error) {
	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	intervals, err := f.provider.BusyIntervals(fetchCtx, id, window)
	if err == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		err = fetchCtx.Err()
	}
	if err != nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("timed out after %s: %w", f.opts.FetchTimeout, err)
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	f.opts.Metrics.RecordBusyFetch(ctx, id, status, time.Since(start))
	return intervals, err
}

func (f *Finder) logger(requestID string) logging.Logger {
	if a, ok := f.opts.Logger.(*logging.SlogAdapter); ok {
		return logging.WithOperation(a.Logger(), "availability.find_best_slots").
			With(logging.KeyRequestID, requestID)
	}
	return f.opts.Logger
}

type requestIDKey struct{}

// WithRequestID attaches a caller-chosen request ID that FindBestSlots logs
// and traces instead of generating its own.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// Compute runs the pure part of the search over busy data that has already
// been fetched, one list per participant.
func Compute(busy [][]Interval, req Request, granularity time.Duration, maxResults int) (*Result, error) {
	rules, err := req.Preferences.compile()
	if err != nil {
		return nil, err
	}
	loc := req.location()

	free := make([][]Interval, len(busy))
	discarded := 0
	for i, intervals := range busy {
		var n int
		free[i], n = Invert(intervals, req.Window)
		discarded += n
	}

	common := IntersectAll(free)
	candidates, err := GenerateSlots(common, req.duration(), granularity, loc)
	if err != nil {
		return nil, err
	}
	ranked := rules.rank(rules.filter(candidates, loc), loc)

	slots := truncate(ranked, maxResults)
	out := make([]Interval, len(slots))
	for i, s := range slots {
		out[i] = s.In(loc)
	}
	return &Result{
		Slots:              out,
		TotalFound:         len(ranked),
		DiscardedIntervals: discarded,
	}, nil
}

func searchStatus(result *Result, err error) string {
	switch {
	case err != nil && !errors.Is(err, ErrProviderFetch) &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return instrumentation.StatusCanceled
	case err != nil:
		return instrumentation.StatusError
	case result.TotalFound == 0:
		return instrumentation.StatusEmpty
	default:
		return instrumentation.StatusSuccess
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordBusyFetch(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordMalformedIntervals(context.Context, int)                  {}
func (nopRecorder) RecordSlotSearch(context.Context, string, int, time.Duration)   {}
