package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/olgamyk/outfit-shopper/internal/infrastructure/resilience"
)

const workerGroup = "workers"

// Queue carries outfit submission events from the api binary to the
// worker pool. The payload is the outfit ID; everything else lives in
// Postgres.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func (o Options) normalize() Options {
	out := o
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = 2 * time.Second
	}
	if out.ReconnectWait <= 0 {
		out.ReconnectWait = 2 * time.Second
	}
	if out.MaxReconnects <= 0 {
		out.MaxReconnects = 60
	}
	return out
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	options = options.normalize()

	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("outfit-shopper"),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishOutfitSubmitted(ctx context.Context, outfitID string) error {
	publish := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(outfitID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", publish, classifyNATSError)
	} else {
		err = publish(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeOutfitSubmitted blocks until ctx is cancelled, delivering each
// submitted outfit ID to handler. Subscribers join one queue group, so a
// message reaches exactly one worker.
func (q *Queue) SubscribeOutfitSubmitted(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			slog.Error("outfit_handler_failed", "outfit_id", string(msg.Data), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
