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

package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/swotrace/swotrace/common"
)

var (
	emittedLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "stream_emitted_lines_total",
			Help:      "Stream emitted lines total",
		},
		[]string{"channel"},
	)

	receivedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "stream_received_bytes_total",
			Help:      "Stream received payload bytes total",
		},
		[]string{"channel"},
	)

	overlongLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "stream_overlong_lines_total",
			Help:      "Stream lines exceeded max line length total",
		},
		[]string{"channel"},
	)

	sinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "stream_sink_failures_total",
			Help:      "Stream sink failures total",
		},
		[]string{"sinker"},
	)

	droppedPackets = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "stream_dropped_packets_total",
			Help:      "Packets dropped for unregistered channels total",
		},
	)
)
