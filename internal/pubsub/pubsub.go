// Copyright 2025 The swotrace Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Queue 订阅方持有的消息队列
type Queue[T any] interface {
	// ID 队列唯一标识
	ID() string

	// PopTimeout 从队列中弹出一个元素 操作会 block 直到有元素或者超时
	PopTimeout(timeout time.Duration) (T, bool)

	// Pop 从队列中弹出一个元素 操作会 block 直到有元素或者 ctx 结束
	Pop(ctx context.Context) (T, bool)

	// Push 推送一个元素至队列中 队列满时直接丢弃
	Push(data T)

	// Close 关闭并清理队列
	Close()
}

type channel[T any] struct {
	id     string
	ch     chan T
	closed atomic.Bool
	mut    sync.RWMutex
}

func newChannel[T any](size int) Queue[T] {
	if size <= 0 {
		size = 1
	}

	return &channel[T]{
		id: uuid.New().String(),
		ch: make(chan T, size),
	}
}

func (ch *channel[T]) ID() string {
	return ch.id
}

func (ch *channel[T]) PopTimeout(timeout time.Duration) (T, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return ch.Pop(ctx)
}

func (ch *channel[T]) Pop(ctx context.Context) (T, bool) {
	var zero T
	select {
	case data, ok := <-ch.ch:
		return data, ok

	case <-ctx.Done():
		return zero, false
	}
}

func (ch *channel[T]) Push(data T) {
	ch.mut.RLock()
	defer ch.mut.RUnlock()

	if ch.closed.Load() {
		return
	}

	select {
	case ch.ch <- data:
	default:
	}
}

func (ch *channel[T]) Close() {
	ch.mut.Lock()
	defer ch.mut.Unlock()

	if ch.closed.CompareAndSwap(false, true) {
		close(ch.ch)
	}
}

// PubSub 广播总线 每个订阅方拥有独立的队列
//
// 发布操作不会阻塞 慢速订阅方会丢失消息 而不会拖慢发布方
type PubSub[T any] struct {
	mut    sync.RWMutex
	queues map[string]Queue[T]
}

func New[T any]() *PubSub[T] {
	return &PubSub[T]{
		queues: make(map[string]Queue[T]),
	}
}

func (p *PubSub[T]) Num() int {
	p.mut.RLock()
	defer p.mut.RUnlock()

	return len(p.queues)
}

func (p *PubSub[T]) Subscribe(size int) Queue[T] {
	p.mut.Lock()
	defer p.mut.Unlock()

	ch := newChannel[T](size)
	p.queues[ch.ID()] = ch
	return ch
}

func (p *PubSub[T]) Publish(msg T) {
	p.mut.RLock()
	defer p.mut.RUnlock()

	for _, q := range p.queues {
		q.Push(msg)
	}
}

func (p *PubSub[T]) Unsubscribe(q Queue[T]) {
	p.mut.Lock()
	delete(p.queues, q.ID())
	p.mut.Unlock()

	q.Close()
}
