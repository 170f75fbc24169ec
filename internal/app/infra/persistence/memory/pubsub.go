package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

// PubSub 进程内发布/订阅，用于单机模式和测试
type PubSub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewPubSub 创建进程内 PubSub
func NewPubSub() *PubSub {
	return &PubSub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription 进程内订阅
type Subscription struct {
	ps      *PubSub
	channel string
	ch      chan string
	once    sync.Once
}

// Subscribe 订阅频道，返回时已生效
func (p *PubSub) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &Subscription{ps: p, channel: channel, ch: make(chan string, 1)}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs[channel] == nil {
		p.subs[channel] = make(map[*Subscription]struct{})
	}
	p.subs[channel][sub] = struct{}{}
	return sub, nil
}

// Publish 发布消息；订阅者缓冲已满时丢弃
func (p *PubSub) Publish(ctx context.Context, channel string, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for sub := range p.subs[channel] {
		select {
		case sub.ch <- message:
		default:
		}
	}
	return nil
}

// Wait 等待一条消息，超时返回 context.DeadlineExceeded
func (s *Subscription) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case msg, ok := <-s.ch:
		if !ok {
			return "", errors.New("subscription closed")
		}
		return msg, nil
	case <-timeoutCtx.Done():
		return "", timeoutCtx.Err()
	}
}

// Close 取消订阅
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.ps.mu.Lock()
		defer s.ps.mu.Unlock()
		delete(s.ps.subs[s.channel], s)
		if len(s.ps.subs[s.channel]) == 0 {
			delete(s.ps.subs, s.channel)
		}
		close(s.ch)
	})
	return nil
}
