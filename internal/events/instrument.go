package events

import (
	"context"

	"github.com/clinicbook/clinicbook-api/pkg/metrics"
)

// InstrumentedPublisher counts booking outcomes on their way to the broker.
type InstrumentedPublisher struct {
	next      Publisher
	collector *metrics.Collector
}

func NewInstrumentedPublisher(next Publisher, collector *metrics.Collector) *InstrumentedPublisher {
	return &InstrumentedPublisher{next: next, collector: collector}
}

func (p *InstrumentedPublisher) Publish(ctx context.Context, eventType string, payload any) {
	if ap, ok := payload.(AppointmentPayload); ok && eventType == TypeAppointmentCreated {
		p.collector.AppointmentsBookedTotal.WithLabelValues(string(ap.Status)).Inc()
		if ap.AutoAdjusted {
			p.collector.AppointmentsAutoAdjusted.Inc()
		}
	}
	p.next.Publish(ctx, eventType, payload)
}
