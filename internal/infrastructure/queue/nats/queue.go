package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
)

const DefaultSubject = "corpus.updated"

// Bus carries corpus.updated events between the corpus watcher and the API
// processes that hold a keyword index.
type Bus struct {
	conn     *nats.Conn
	subject  string
	group    string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// QueueGroup is empty by default so every API replica rebuilds its own
	// index.
	QueueGroup         string
	ResilienceExecutor *resilience.Executor
}

func New(url, subject string, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(
		url,
		nats.Name("assistly"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
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
	return &Bus{
		conn:     conn,
		subject:  subject,
		group:    strings.TrimSpace(options.QueueGroup),
		executor: options.ResilienceExecutor,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *Bus) PublishCorpusUpdated(ctx context.Context, event domain.CorpusEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := b.conn.Publish(b.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeCorpusUpdated blocks until ctx is done, then drains the
// subscription. Undecodable messages are logged and dropped.
func (b *Bus) SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context, domain.CorpusEvent) error) error {
	onMsg := func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := decodeEvent(msg.Data)
		if err != nil {
			slog.Warn("corpus_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			slog.Error("corpus_event_handler_failed", "reason", event.Reason, "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if b.group != "" {
		sub, err = b.conn.QueueSubscribe(b.subject, b.group, onMsg)
	} else {
		sub, err = b.conn.Subscribe(b.subject, onMsg)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("corpus_events_subscribed", "subject", b.subject, "queue_group", b.group)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

type eventPayload struct {
	Reason      string `json:"reason"`
	ChunkCount  int    `json:"chunk_count"`
	PublishedAt string `json:"published_at"`
}

func encodeEvent(event domain.CorpusEvent) ([]byte, error) {
	publishedAt := event.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}
	raw, err := json.Marshal(eventPayload{
		Reason:      event.Reason,
		ChunkCount:  event.ChunkCount,
		PublishedAt: publishedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode corpus event: %w", err)
	}
	return raw, nil
}

// decodeEvent accepts an empty body as a bare rebuild request.
func decodeEvent(data []byte) (domain.CorpusEvent, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return domain.CorpusEvent{Reason: "empty_payload"}, nil
	}
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.CorpusEvent{}, domain.WrapError(domain.ErrMalformedResponse, "decode corpus event", err)
	}
	event := domain.CorpusEvent{Reason: p.Reason, ChunkCount: p.ChunkCount}
	if p.PublishedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, p.PublishedAt)
		if err != nil {
			return domain.CorpusEvent{}, domain.WrapError(domain.ErrMalformedResponse, "decode corpus event", err)
		}
		event.PublishedAt = ts
	}
	return event, nil
}
