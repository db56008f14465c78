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

package tcl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/internal/rescue"
	"github.com/swotrace/swotrace/internal/splitio"
	"github.com/swotrace/swotrace/logger"
)

var (
	ErrClosed        = errors.New("tcl/client: connection closed")
	ErrQueueFull     = errors.New("tcl/client: write queue full")
	ErrCommandFailed = errors.New("tcl/client: command failed")
)

const (
	// resultVar 保存 catch 结果的 Tcl 变量
	resultVar = "swotrace_result"

	// maxFrameSize 单帧最大长度 超出的残余数据会被丢弃以避免无界增长
	maxFrameSize = 4 << 20
)

type Options struct {
	Address        string        `config:"address"`
	DialTimeout    time.Duration `config:"dialTimeout"`
	CommandTimeout time.Duration `config:"commandTimeout"`
	TraceBuffer    int           `config:"traceBuffer"`
	WriteBuffer    int           `config:"writeBuffer"`
}

func (o *Options) Validate() {
	if o.Address == "" {
		o.Address = "localhost:6666"
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 10 * time.Second
	}
	if o.TraceBuffer <= 0 {
		o.TraceBuffer = 1024
	}
	if o.WriteBuffer <= 0 {
		o.WriteBuffer = 256
	}
}

type result struct {
	text string
	err  error
}

type request struct {
	script []byte
	waiter chan result // nil 代表无需响应
}

// Client OpenOCD Tcl Server 客户端
//
// 同一条链接同时承载 trace 通知和命令收发 所有写入都由单个 writer goroutine 串行完成
// 且在写入之前按序登记响应等待方 reader goroutine 按照 FIFO 顺序将响应交付给等待方
// 因此命令写入和 trace 读取永远不会交错出半帧
//
//	+---------+   request   +--------+   script\x1a   +-----------+
//	| Exec    | ----------> | writer | -------------> |           |
//	| Send    |             +--------+                |  OpenOCD  |
//	+---------+                                       |  Tcl      |
//	+---------+   result    +--------+   frame\x1a    |  Server   |
//	| waiters | <---------- | reader | <------------- |           |
//	+---------+             +--------+                +-----------+
//	                            |
//	                            +--> Trace() <- target_trace 通知
type Client struct {
	opts Options
	conn net.Conn
	log  logger.Logger

	requests chan request
	trace    chan []byte

	wmut    sync.Mutex
	waiters []chan result

	cmut sync.Mutex // 串行化 Command 的两次往返

	done      chan struct{}
	closeOnce sync.Once
	errMut    sync.Mutex
	err       error
}

// Dial 连接 Tcl Server
func Dial(ctx context.Context, opts Options) (*Client, error) {
	opts.Validate()

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", opts.Address)
	}
	return NewClient(conn, opts), nil
}

// NewClient 基于已建立的链接创建 Client 并启动读写循环
func NewClient(conn net.Conn, opts Options) *Client {
	opts.Validate()

	c := &Client{
		opts:     opts,
		conn:     conn,
		log:      logger.Named("tcl"),
		requests: make(chan request, opts.WriteBuffer),
		trace:    make(chan []byte, opts.TraceBuffer),
		done:     make(chan struct{}),
	}
	rescue.Go("tcl.reader", c.loopRead)
	rescue.Go("tcl.writer", c.loopWrite)
	return c
}

// Trace 返回 trace 数据通道 链接断开后通道会被关闭
func (c *Client) Trace() <-chan []byte {
	return c.trace
}

// Done 链接断开或者 Close 之后关闭
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err 返回导致链接断开的错误
func (c *Client) Err() error {
	c.errMut.Lock()
	defer c.errMut.Unlock()
	return c.err
}

// Close 关闭链接
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.errMut.Lock()
		c.err = err
		c.errMut.Unlock()

		close(c.done)
		c.conn.Close()

		c.wmut.Lock()
		waiters := c.waiters
		c.waiters = nil
		c.wmut.Unlock()

		for _, w := range waiters {
			if w != nil {
				w <- result{err: ErrClosed}
			}
		}
	})
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send 发送脚本且不等待结果 写入队列满时直接返回 ErrQueueFull
//
// 调用方不会被链接写入阻塞 适合在解码链路中使用
func (c *Client) Send(script string) error {
	if c.closed() {
		return ErrClosed
	}

	select {
	case c.requests <- request{script: encodeScript(script)}:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// Exec 执行脚本并等待 Tcl Server 返回结果
//
// ctx 未设置 deadline 时使用 CommandTimeout
func (c *Client) Exec(ctx context.Context, script string) (string, error) {
	if c.closed() {
		return "", ErrClosed
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CommandTimeout)
		defer cancel()
	}

	// 缓冲为 1 超时的等待方被丢弃后 reader 的写入也不会阻塞
	waiter := make(chan result, 1)
	select {
	case c.requests <- request{script: encodeScript(script), waiter: waiter}:
	case <-c.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", errors.Wrapf(ctx.Err(), "exec %q", script)
	}

	select {
	case r := <-waiter:
		return r.text, r.err
	case <-c.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", errors.Wrapf(ctx.Err(), "exec %q", script)
	}
}

// Command 执行一条 OpenOCD 命令 并通过 catch 区分成功或者失败
//
//	catch {reset halt} swotrace_result  -> 0 / 1
//	set swotrace_result                 -> 命令返回值或者错误信息
func (c *Client) Command(ctx context.Context, cmd string) (string, error) {
	c.cmut.Lock()
	defer c.cmut.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CommandTimeout)
		defer cancel()
	}

	code, err := c.Exec(ctx, fmt.Sprintf("catch {%s} %s", cmd, resultVar))
	if err != nil {
		return "", err
	}
	msg, err := c.Exec(ctx, "set "+resultVar)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(code) != "0" {
		return msg, errors.Wrapf(ErrCommandFailed, "%s: %s", cmd, msg)
	}
	return msg, nil
}

func encodeScript(script string) []byte {
	b := make([]byte, 0, len(script)+1)
	b = append(b, script...)
	return append(b, Terminator)
}

func (c *Client) loopWrite() {
	for {
		select {
		case <-c.done:
			return

		case req := <-c.requests:
			// 先登记等待方再写入 保证响应到达时一定能找到对应的等待方
			c.wmut.Lock()
			c.waiters = append(c.waiters, req.waiter)
			c.wmut.Unlock()

			if _, err := c.conn.Write(req.script); err != nil {
				c.log.Errorf("write to %s failed: %v", c.opts.Address, err)
				c.shutdown(errors.Wrap(err, "write"))
				return
			}
		}
	}
}

func (c *Client) loopRead() {
	defer close(c.trace)

	splitter := splitio.NewSplitter(Terminator, maxFrameSize)
	buf := make([]byte, common.ReadBlockSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			splitter.Feed(buf[:n], c.onFrame)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.shutdown(ErrClosed)
			} else {
				c.shutdown(errors.Wrap(err, "read"))
			}
			return
		}
	}
}

func (c *Client) onFrame(frame []byte) {
	if IsNotification(frame) {
		data, err := DecodeTrace(frame)
		if err != nil {
			if !errors.Is(err, errNotTrace) {
				c.log.Debugf("drop malformed trace notification: %v", err)
			}
			return
		}
		if len(data) == 0 {
			return
		}

		select {
		case c.trace <- data:
		case <-c.done:
		}
		return
	}

	c.wmut.Lock()
	if len(c.waiters) == 0 {
		c.wmut.Unlock()
		c.log.Debugf("drop unexpected response: %q", frame)
		return
	}
	waiter := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.wmut.Unlock()

	if waiter != nil {
		waiter <- result{text: string(bytes.TrimRight(frame, "\r\n"))}
	}
}
