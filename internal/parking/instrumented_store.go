package parking

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStore records a span and metrics for every call made to the
// wrapped store.
type InstrumentedStore struct {
	SlotStore
	telemetry *TelemetryProvider

	// Metrics
	storeOperations   metric.Int64Counter
	operationDuration metric.Float64Histogram
	snapshotSize      metric.Int64Histogram

	// occupied is the absolute count from the last listing, adjusted by
	// transitions since. Nothing is reported until a listing has succeeded.
	occupied atomic.Int64
	seeded   atomic.Bool
}

func NewInstrumentedStore(store SlotStore, telemetry *TelemetryProvider) (*InstrumentedStore, error) {
	meter := telemetry.Meter()

	storeOperations, err := meter.Int64Counter("slot_store_operations_total",
		metric.WithDescription("Total number of slot store operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("slot_store_operation_duration_seconds",
		metric.WithDescription("Duration of slot store operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("slot_store_snapshot_size",
		metric.WithDescription("Number of slots returned by a full listing"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	s := &InstrumentedStore{
		SlotStore:         store,
		telemetry:         telemetry,
		storeOperations:   storeOperations,
		operationDuration: operationDuration,
		snapshotSize:      snapshotSize,
	}

	_, err = meter.Int64ObservableGauge("parking_lot_occupancy",
		metric.WithDescription("Occupied parking slots as last seen through the store"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if s.seeded.Load() {
				o.Observe(s.occupied.Load())
			}
			return nil
		}))
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *InstrumentedStore) ListSlots(ctx context.Context) ([]Slot, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "slot_store.list_slots")
	defer span.End()

	start := time.Now()
	slots, err := s.SlotStore.ListSlots(ctx)

	labels := []attribute.KeyValue{attribute.String("operation", "list_slots")}
	if err == nil {
		occupied := len(OccupiedSlots(slots))
		span.SetAttributes(
			attribute.Int("slots.total", len(slots)),
			attribute.Int("slots.occupied", occupied),
		)
		s.snapshotSize.Record(ctx, int64(len(slots)))
		s.occupied.Store(int64(occupied))
		s.seeded.Store(true)
	}
	s.finish(ctx, span, start, labels, err)
	return slots, err
}

func (s *InstrumentedStore) Occupy(ctx context.Context, slotID int, vehicleNumber string, entryTime time.Time) (Slot, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "slot_store.occupy",
		trace.WithAttributes(
			attribute.Int("slot.id", slotID),
			attribute.String("vehicle.number", vehicleNumber),
		))
	defer span.End()

	start := time.Now()
	slot, err := s.SlotStore.Occupy(ctx, slotID, vehicleNumber, entryTime)

	labels := []attribute.KeyValue{attribute.String("operation", "occupy")}
	if err == nil {
		span.AddEvent("slot_occupied", trace.WithAttributes(
			attribute.String("slot.number", slot.Number),
		))
		s.occupied.Add(1)
	}
	s.finish(ctx, span, start, labels, err)
	return slot, err
}

func (s *InstrumentedStore) Release(ctx context.Context, slotID int) (Slot, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "slot_store.release",
		trace.WithAttributes(
			attribute.Int("slot.id", slotID),
		))
	defer span.End()

	start := time.Now()
	slot, err := s.SlotStore.Release(ctx, slotID)

	labels := []attribute.KeyValue{attribute.String("operation", "release")}
	if err == nil {
		span.AddEvent("slot_released", trace.WithAttributes(
			attribute.String("slot.number", slot.Number),
		))
		s.occupied.Add(-1)
	}
	s.finish(ctx, span, start, labels, err)
	return slot, err
}

func (s *InstrumentedStore) finish(ctx context.Context, span trace.Span, start time.Time, labels []attribute.KeyValue, err error) {
	duration := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", errorStatus(err)))
	} else {
		labels = append(labels, attribute.String("status", "success"))
	}

	s.storeOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	s.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, ErrSlotNotFound):
		return "not_found"
	case errors.Is(err, ErrSlotAlreadyOccupied):
		return "already_occupied"
	case errors.Is(err, ErrSlotNotOccupied):
		return "not_occupied"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	default:
		return "failed"
	}
}
