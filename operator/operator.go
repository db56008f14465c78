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

package operator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/swotrace/swotrace/common"
)

var operatorEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "operator_events_total",
		Help:      "Operator events total",
	},
	[]string{"kind", "source", "status"},
)

type Config struct {
	// Keys 是否从终端读取按键
	Keys      bool              `config:"keys"`
	Bindings  map[string]string `config:"bindings"`
	QueueSize int               `config:"queueSize"`
}

func (c *Config) Validate() {
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
}

// Bindings 解析按键配置 未配置时使用 DefaultBindings
func (c *Config) ParseBindings() (Bindings, error) {
	if len(c.Bindings) == 0 {
		return DefaultBindings(), nil
	}
	return ParseBindings(c.Bindings)
}

// Queue 汇聚所有来源的事件
//
// Offer 永远不会阻塞 队列满时事件被丢弃 按键和文件监听都不会因为控制链路繁忙而卡住
type Queue struct {
	ch chan Event
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

func (q *Queue) Offer(ev Event) bool {
	select {
	case q.ch <- ev:
		operatorEvents.WithLabelValues(string(ev.Kind), ev.Source, "accepted").Inc()
		return true
	default:
		operatorEvents.WithLabelValues(string(ev.Kind), ev.Source, "dropped").Inc()
		return false
	}
}

func (q *Queue) Events() <-chan Event {
	return q.ch
}
