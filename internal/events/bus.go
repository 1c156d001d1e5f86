// Package events publishes qualification events to other processes.
// Publishing is best-effort; callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"leadagent/internal/logger"
	"leadagent/internal/model"
)

// Event types
const (
	TypeLeadQualified   = "lead.qualified"
	TypePreferenceSaved = "lead.preferences_saved"
)

// QualificationEvent describes one processed lead message
type QualificationEvent struct {
	Type        string                    `json:"type"`
	LeadID      *int64                    `json:"lead_id,omitempty"`
	AgencyID    *int64                    `json:"agency_id,omitempty"`
	Channel     string                    `json:"channel"`
	Created     bool                      `json:"created"`
	Result      model.QualificationResult `json:"result"`
	OccurredAt  time.Time                 `json:"occurred_at"`
	Diagnostics []string                  `json:"diagnostics,omitempty"`
}

// Bus publishes qualification events
type Bus interface {
	Publish(ctx context.Context, ev QualificationEvent) error
	Close() error
}

// RedisBus publishes events as JSON on a Redis pub/sub channel
type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects to addr and checks the server answers
func NewRedisBus(ctx context.Context, addr, channel string, log *logger.Logger) (*RedisBus, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "lead-events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{
		log:     log.With("service", "RedisBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

// Publish sends ev to the channel
func (b *RedisBus) Publish(ctx context.Context, ev QualificationEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe calls onEvent for every event on the channel until ctx is done
func (b *RedisBus) Subscribe(ctx context.Context, onEvent func(QualificationEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok || m == nil {
				return nil
			}
			var ev QualificationEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				b.log.Warn("bad event payload", "error", err)
				continue
			}
			onEvent(ev)
		}
	}
}

// Close closes the redis client
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

// NopBus drops every event
type NopBus struct{}

func (NopBus) Publish(context.Context, QualificationEvent) error { return nil }
func (NopBus) Close() error                                      { return nil }

// MemoryBus keeps published events in memory
type MemoryBus struct {
	mu     sync.Mutex
	events []QualificationEvent
}

func (b *MemoryBus) Publish(_ context.Context, ev QualificationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *MemoryBus) Close() error { return nil }

// Events returns a copy of everything published so far
func (b *MemoryBus) Events() []QualificationEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]QualificationEvent, len(b.events))
	copy(out, b.events)
	return out
}

var (
	_ Bus = (*RedisBus)(nil)
	_ Bus = NopBus{}
	_ Bus = (*MemoryBus)(nil)
)
