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
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/swotrace/swotrace/logger"
)

var ErrNotTerminal = errors.New("operator: stdin is not a terminal")

// KeyReader 读取终端按键并转换为事件
type KeyReader struct {
	bindings Bindings
	emit     func(Event) bool
	log      logger.Logger
}

// NewKeyReader emit 需要是非阻塞的 返回 false 代表事件被丢弃
func NewKeyReader(bindings Bindings, emit func(Event) bool) *KeyReader {
	return &KeyReader{
		bindings: bindings,
		emit:     emit,
		log:      logger.Named("operator"),
	}
}

// RunTerminal 将 f 切换到 cbreak 模式后读取按键 返回前恢复终端属性
func (r *KeyReader) RunTerminal(ctx context.Context, f *os.File) error {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}

	restore, poll, err := makeCbreak(fd)
	if err != nil {
		return errors.Wrap(err, "set terminal mode")
	}
	defer func() {
		if err := restore(); err != nil {
			r.log.Errorf("restore terminal failed: %v", err)
		}
	}()

	return r.run(ctx, f, poll)
}

// Run 从 in 读取按键 直到 ctx 结束或者 in 读取完毕
func (r *KeyReader) Run(ctx context.Context, in io.Reader) error {
	return r.run(ctx, in, false)
}

// run poll 为 true 时 读超时返回的 0 字节 (os.File 表现为 io.EOF) 不代表输入结束
func (r *KeyReader) run(ctx context.Context, in io.Reader, poll bool) error {
	buf := make([]byte, 16)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := in.Read(buf)
		for _, b := range buf[:n] {
			r.onKey(b)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if poll {
					continue
				}
				return nil
			}
			return errors.Wrap(err, "read key")
		}
	}
}

func (r *KeyReader) onKey(b byte) {
	kind, ok := r.bindings.Lookup(b)
	if !ok {
		return
	}

	ev := Event{Kind: kind, Source: SourceKey}
	if !r.emit(ev) {
		r.log.Warnf("event %s dropped: queue full", ev)
	}
}
