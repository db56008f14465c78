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

package rescue

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/logger"
)

var panicTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "panic_total",
		Help:      "program causes panic total",
	},
	[]string{"routine"},
)

func logPanic(name string, r any) {
	const size = 64 << 10
	stacktrace := make([]byte, size)
	stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
	if _, ok := r.(string); ok {
		logger.Errorf("Observed a panic in %s: %s\n%s", name, r, stacktrace)
	} else {
		logger.Errorf("Observed a panic in %s: %#v (%v)\n%s", name, r, r, stacktrace)
	}
}

// HandleCrash 捕获 panic 并记录 需以 defer 方式调用
func HandleCrash(name string) {
	if r := recover(); r != nil {
		panicTotal.WithLabelValues(name).Inc()
		logPanic(name, r)
	}
}

// Go 启动一个受保护的 goroutine
//
// 控制链路上的任何 panic 都不应该拖垮解码链路 反之亦然
func Go(name string, fn func()) {
	go func() {
		defer HandleCrash(name)
		fn()
	}()
}
