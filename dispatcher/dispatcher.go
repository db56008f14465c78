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

package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/logger"
	"github.com/swotrace/swotrace/operator"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "dispatcher_operations_total",
			Help:      "Dispatcher operations total",
		},
		[]string{"operation", "status"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: common.App,
			Name:      "dispatcher_operation_duration_seconds",
			Help:      "Dispatcher operation duration seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)
)

// Commander 执行单条调试器命令 命令失败时返回错误
type Commander interface {
	Command(ctx context.Context, cmd string) (string, error)
}

// Notifier 向操作员输出提示信息
type Notifier func(format string, args ...any)

const (
	OpReset   = "reset"
	OpFlash   = "flash"
	OpLock    = "lock"
	OpUnlock  = "unlock"
	statusOK  = "success"
	statusErr = "failure"
)

// Dispatcher 将操作员事件翻译为调试器命令序列
//
// 每个操作都有独立的超时 命令序列中任意一条失败会终止后续命令
// 失败只会被报告和计数 不会影响解码链路
type Dispatcher struct {
	cmd    Commander
	cfg    Config
	notify Notifier
	log    logger.Logger
}

func New(cmd Commander, cfg Config, notify Notifier) (*Dispatcher, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if notify == nil {
		notify = func(string, ...any) {}
	}
	return &Dispatcher{
		cmd:    cmd,
		cfg:    cfg,
		notify: notify,
		log:    logger.Named("dispatcher"),
	}, nil
}

func (d *Dispatcher) Config() Config {
	return d.cfg
}

// Reset 复位目标
func (d *Dispatcher) Reset(ctx context.Context) error {
	d.notify("Resetting...")
	return d.run(ctx, OpReset, "reset")
}

// ProgramFlash 停止目标 擦除并写入镜像后复位 image 为空时使用默认镜像
func (d *Dispatcher) ProgramFlash(ctx context.Context, image string) error {
	if image == "" {
		image = d.cfg.Image
	}
	if strings.ContainsAny(image, "{}[]$\"\r\n") {
		err := errors.Errorf("invalid image path %q", image)
		d.report(OpFlash, err)
		return err
	}

	d.notify("Programming %s...", image)
	return d.run(ctx, OpFlash,
		"reset halt",
		fmt.Sprintf("flash write_image erase {%s} %s", image, d.cfg.FlashAddress),
		"reset",
	)
}

// Lock 开启 flash 读保护
func (d *Dispatcher) Lock(ctx context.Context) error {
	d.notify("Locking flash...")
	return d.run(ctx, OpLock,
		"reset halt",
		fmt.Sprintf("%s lock 0", d.cfg.FlashDriver),
		"reset",
	)
}

// Unlock 解除 flash 读保护
func (d *Dispatcher) Unlock(ctx context.Context) error {
	d.notify("Unlocking flash...")
	return d.run(ctx, OpUnlock,
		"reset halt",
		fmt.Sprintf("%s unlock 0", d.cfg.FlashDriver),
		"reset",
	)
}

// Handle 执行事件对应的操作 quit 事件由调用方处理
func (d *Dispatcher) Handle(ctx context.Context, ev operator.Event) error {
	switch ev.Kind {
	case operator.KindReset:
		return d.Reset(ctx)
	case operator.KindFlash:
		return d.ProgramFlash(ctx, "")
	case operator.KindLock:
		return d.Lock(ctx)
	case operator.KindUnlock:
		return d.Unlock(ctx)
	case operator.KindQuit:
		return nil
	}
	return errors.Errorf("unsupported event %s", ev)
}

func (d *Dispatcher) run(ctx context.Context, op string, cmds ...string) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	for _, cmd := range cmds {
		out, err := d.cmd.Command(ctx, cmd)
		if err != nil {
			err = errors.Wrapf(err, "%s: command %q", op, cmd)
			d.report(op, err)
			return err
		}
		if out = strings.TrimSpace(out); out != "" {
			d.log.Debugf("%s: %s -> %s", op, cmd, out)
		}
	}

	operationsTotal.WithLabelValues(op, statusOK).Inc()
	d.log.Infof("%s done in %s", op, time.Since(start))
	return nil
}

func (d *Dispatcher) report(op string, err error) {
	operationsTotal.WithLabelValues(op, statusErr).Inc()
	d.log.Errorf("%v", err)
	d.notify("%s failed: %v", op, err)
}
