package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/resilience"
)

// Connection-level failures: publishing again after reconnect can succeed.
var retryableConnErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	for _, connErr := range retryableConnErrors {
		if errors.Is(err, connErr) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
