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

package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/dispatcher"
	"github.com/swotrace/swotrace/exporter"
	"github.com/swotrace/swotrace/internal/rescue"
	"github.com/swotrace/swotrace/logger"
	"github.com/swotrace/swotrace/operator"
	"github.com/swotrace/swotrace/pipeline"
	"github.com/swotrace/swotrace/protocol/tcl"
	"github.com/swotrace/swotrace/server"
	"github.com/swotrace/swotrace/stream"
)

const keysWait = 500 * time.Millisecond

// Controller 组装并驱动解码链路和控制链路
//
//	               +-> Trace() --> pipeline --> streams --> sinkers
//	tcl.Client ----|
//	               +<- dispatcher <-- events <-- keys / http / watcher
//
// 两条链路运行在独立的 goroutine 中 共享同一条 Tcl 链接
type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       Config
	buildInfo common.BuildInfo

	client  *tcl.Client
	exp     *exporter.Exporter
	streams *stream.Manager
	pl      *pipeline.Pipeline
	dsp     *dispatcher.Dispatcher
	events  *operator.Queue
	keys    *operator.KeyReader
	watcher *operator.ImageWatcher
	svr     *server.Server

	stdin   *os.File
	console io.Writer
	cmut    sync.Mutex

	wg          sync.WaitGroup
	keysDone    chan struct{}
	keysStarted bool
	done        chan struct{}
	doneOnce    sync.Once
	stopOnce    sync.Once
	stopErr     error
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChildOptional("logger", &opts); err != nil {
		return err
	}

	if !opts.Stdout && !opts.Stderr && opts.Filename == "" {
		opts.Filename = common.App + ".log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// New 读取配置并连接调试器 任何配置错误都会导致创建失败
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(conf)
	if err != nil {
		return nil, err
	}
	bindings, err := cfg.Operator.ParseBindings()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		events:    operator.NewQueue(cfg.Operator.QueueSize),
		stdin:     os.Stdin,
		console:   os.Stdout,
		done:      make(chan struct{}),
		keysDone:  make(chan struct{}),
	}

	// 先完成所有不依赖链接的组件 避免配置错误时还要清理链接
	if c.svr, err = server.New(conf); err != nil {
		cancel()
		return nil, err
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.OpenOCD.DialTimeout)
	defer dialCancel()
	if c.client, err = tcl.Dial(dialCtx, cfg.OpenOCD); err != nil {
		cancel()
		return nil, err
	}

	if err := c.setup(conf, bindings); err != nil {
		c.client.Close()
		if c.exp != nil {
			c.exp.Close()
		}
		cancel()
		return nil, err
	}
	return c, nil
}

func (c *Controller) setup(conf *confengine.Config, bindings operator.Bindings) error {
	var err error
	if c.exp, err = exporter.New(conf, c.client); err != nil {
		return err
	}
	if c.streams, err = stream.Build(c.cfg.Streams, c.exp.SinkersFor); err != nil {
		return err
	}
	c.pl = pipeline.New(c.streams)

	if c.dsp, err = dispatcher.New(c.client, c.cfg.Dispatcher, c.notify); err != nil {
		return err
	}
	c.keys = operator.NewKeyReader(bindings, c.events.Offer)
	return nil
}

// notify 向操作员输出提示 同时记录日志
func (c *Controller) notify(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Infof("%s", msg)

	c.cmut.Lock()
	defer c.cmut.Unlock()
	fmt.Fprintln(c.console, msg)
}

// Start 执行初始化命令并启动所有 goroutine
func (c *Controller) Start() error {
	cmds, err := c.cfg.Target.Render(c.cfg.Target.InitCommands)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		out, err := c.client.Command(c.ctx, cmd)
		if err != nil {
			return errors.Wrap(err, "init target")
		}
		logger.Debugf("init: %s -> %s", cmd, strings.TrimSpace(out))
	}
	adapterConnected.Set(1)

	c.setupServer()
	c.banner()

	c.wg.Add(2)
	rescue.Go("controller.decode", func() {
		defer c.wg.Done()
		c.loopDecode()
	})
	rescue.Go("controller.control", func() {
		defer c.wg.Done()
		c.loopControl()
	})

	if c.cfg.Operator.Keys {
		c.keysStarted = true
		rescue.Go("controller.keys", func() {
			defer close(c.keysDone)
			err := c.keys.RunTerminal(c.ctx, c.stdin)
			switch {
			case errors.Is(err, operator.ErrNotTerminal):
				logger.Infof("stdin is not a terminal, key bindings disabled")
			case err != nil:
				logger.Errorf("key reader stopped: %v", err)
			}
		})
	}

	if c.cfg.Dispatcher.WatchImage {
		w, err := operator.NewImageWatcher(c.cfg.Dispatcher.Image, c.cfg.Dispatcher.Debounce, c.events.Offer)
		if err != nil {
			return err
		}
		c.watcher = w
		logger.Infof("watching %s for auto flash", w.Path())
	}

	if c.svr != nil {
		rescue.Go("controller.server", func() {
			if err := c.svr.ListenAndServe(); err != nil {
				logger.Errorf("failed to start server: %v", err)
			}
		})
	}
	return nil
}

func (c *Controller) banner() {
	c.notify("CPU clock: %g MHz", float64(c.cfg.Target.ClockHz)/1e6)
	if !c.cfg.Operator.Keys {
		return
	}

	bindings, _ := c.cfg.Operator.ParseBindings()
	keys := make([]byte, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		c.notify("%s: %s", operator.KeyName(k), bindings[k])
	}
}

func (c *Controller) loopDecode() {
	err := c.pl.Run(c.ctx, c.client.Trace())
	if err != nil || c.ctx.Err() != nil {
		// 主动退出
		return
	}

	adapterConnected.Set(0)
	if cerr := c.client.Err(); cerr != nil && !errors.Is(cerr, tcl.ErrClosed) {
		logger.Errorf("adapter connection lost: %v", cerr)
	}
	c.notify("Connection Closed")
	c.finish()
}

func (c *Controller) loopControl() {
	for {
		select {
		case <-c.ctx.Done():
			return

		case ev := <-c.events.Events():
			if ev.Kind == operator.KindQuit {
				handledEvents.WithLabelValues(string(ev.Kind), "success").Inc()
				c.finish()
				continue
			}

			status := "success"
			if err := c.dsp.Handle(c.ctx, ev); err != nil {
				status = "failure"
			}
			handledEvents.WithLabelValues(string(ev.Kind), status).Inc()
		}
	}
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Done 链接断开或者收到 quit 事件后关闭
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Offer 投递操作员事件 不会阻塞
func (c *Controller) Offer(ev operator.Event) bool {
	return c.events.Offer(ev)
}

// Stop 关闭 trace 输出并释放所有资源
//
// 未以换行结束的行会被丢弃
func (c *Controller) Stop() error {
	c.stopOnce.Do(func() {
		c.stopErr = c.stop()
	})
	return c.stopErr
}

func (c *Controller) stop() error {
	var errs error

	// 解码链路仍在消费 trace 保证 reader 不会因为 trace 通道写满而无法读取响应
	select {
	case <-c.client.Done():
	default:
		cmds, err := c.cfg.Target.Render(c.cfg.Target.ShutdownCommands)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		for _, cmd := range cmds {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OpenOCD.CommandTimeout)
			if _, err := c.client.Command(ctx, cmd); err != nil {
				errs = multierror.Append(errs, errors.Wrap(err, "shutdown target"))
			}
			cancel()
		}
	}

	c.cancel()
	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if c.svr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.svr.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
		cancel()
	}
	if err := c.client.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}

	c.wg.Wait()
	c.waitKeys()
	c.exp.Close()
	adapterConnected.Set(0)
	c.finish()
	return errs
}

// waitKeys 等待按键读取退出以恢复终端属性
//
// 不支持超时读取的平台上 read 无法被打断 最多等待 keysWait
func (c *Controller) waitKeys() {
	if !c.keysStarted {
		return
	}
	select {
	case <-c.keysDone:
	case <-time.After(keysWait):
	}
}
