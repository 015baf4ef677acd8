package service

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dErrors "referrals/pkg/domain-errors"
)

func (s *Service) observeDuration(op string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOperation(op, time.Since(start))
}

func (s *Service) observeRetry(op string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncTxRetry(op)
}

// observeRedemption records the outcome label: "ok" or the rejection code.
func (s *Service) observeRedemption(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.IncRedemption(outcome)
}

func (s *Service) incCodesCreated() {
	if s.metrics == nil {
		return
	}
	s.metrics.IncCodesCreated()
}

func (s *Service) incFinalized(points int) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFinalized(points)
}

func (s *Service) incCancelled() {
	if s.metrics == nil {
		return
	}
	s.metrics.IncCancelled()
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCache(hit)
}

func traceAttr(key, value string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String(key, value))
}
