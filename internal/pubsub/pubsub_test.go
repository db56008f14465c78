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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPubSub(t *testing.T) {
	bus := New[int]()

	const workers = 10
	var total atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := bus.Subscribe(10)
			defer bus.Unsubscribe(q)

			for n := 0; n < 20; n++ {
				q.Push(i)
			}

			var count int
			for {
				_, ok := q.PopTimeout(100 * time.Millisecond)
				if !ok {
					break
				}
				count++
			}
			total.Add(int64(count))
			assert.Equal(t, 10, count)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), total.Load())
	assert.Equal(t, 0, bus.Num())
}

func TestPublish(t *testing.T) {
	bus := New[string]()
	q1 := bus.Subscribe(2)
	q2 := bus.Subscribe(2)
	assert.Equal(t, 2, bus.Num())

	bus.Publish("foo")
	bus.Publish("bar")
	bus.Publish("dropped")

	for _, q := range []Queue[string]{q1, q2} {
		v, ok := q.PopTimeout(time.Second)
		assert.True(t, ok)
		assert.Equal(t, "foo", v)

		v, ok = q.Pop(context.Background())
		assert.True(t, ok)
		assert.Equal(t, "bar", v)
	}

	bus.Unsubscribe(q1)
	q1.Push("after close")
	_, ok := q1.PopTimeout(10 * time.Millisecond)
	assert.False(t, ok)
}
