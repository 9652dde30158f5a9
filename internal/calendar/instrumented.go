package calendar

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calslot/internal/instrumentation"
)

// InstrumentedSource records a span and metrics for every call to the
// wrapped source.
type InstrumentedSource struct {
	src     Source
	metrics *instrumentation.Metrics
}

var _ Source = (*InstrumentedSource)(nil)

// NewInstrumentedSource wraps src. A nil metrics recorder only traces.
func NewInstrumentedSource(src Source, metrics *instrumentation.Metrics) *InstrumentedSource {
	return &InstrumentedSource{src: src, metrics: metrics}
}

func (s *InstrumentedSource) Name() string { return s.src.Name() }

func (s *InstrumentedSource) Location() *time.Location { return s.src.Location() }

// Unwrap returns the wrapped source.
func (s *InstrumentedSource) Unwrap() Source { return s.src }

func (s *InstrumentedSource) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]EventSummary, error) {
	ctx, span := instrumentation.StartSourceSpan(ctx, s.src.Name(), instrumentation.OperationListEvents)
	defer span.End()

	start := time.Now()
	events, err := s.src.ListEvents(ctx, timeMin, timeMax)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		span.SetAttributes(attribute.Int(instrumentation.SpanAttrCount, len(events)))
		instrumentation.SetSpanSuccess(span)
		s.metrics.RecordEventsFetched(ctx, s.src.Name(), len(events))
	}
	s.metrics.RecordSourceOperation(ctx, s.src.Name(), instrumentation.OperationListEvents, status, time.Since(start))
	return events, err
}

// calendarGetter is implemented by sources that expose calendar metadata.
type calendarGetter interface {
	GetCalendar(ctx context.Context) (CalendarInfo, error)
}

// unwrapper is implemented by source decorators.
type unwrapper interface {
	Unwrap() Source
}

// Describe returns metadata for the calendar behind src. Sources without
// metadata of their own are described by their kind and location.
func Describe(ctx context.Context, src Source) (CalendarInfo, error) {
	for s := src; s != nil; {
		if g, ok := s.(calendarGetter); ok {
			return g.GetCalendar(ctx)
		}
		u, ok := s.(unwrapper)
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	return CalendarInfo{
		ID:       src.Name(),
		Summary:  src.Name() + " calendar",
		TimeZone: src.Location().String(),
		Primary:  true,
	}, nil
}
