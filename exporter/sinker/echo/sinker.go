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

package echo

import (
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/exporter"
	"github.com/swotrace/swotrace/protocol/tcl"
)

func init() {
	exporter.Register(exporter.SinkerEcho, New)
}

// Sinker 将行以 `puts "..."` 的形式回显到调试器的 Tcl 终端
//
// 发送为非阻塞操作 写入队列满时该行回显被丢弃并返回错误
type Sinker struct {
	sender exporter.Sender
}

func New(_ exporter.Config, deps exporter.Deps) (exporter.Sinker, error) {
	if deps.Sender == nil {
		return nil, errors.New("echo sinker requires a sender")
	}
	return &Sinker{sender: deps.Sender}, nil
}

func (s *Sinker) Name() string {
	return exporter.SinkerEcho
}

func (s *Sinker) Sink(line common.Line) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("puts ")
	buf.WriteString(tcl.Quote(line.Text))
	return s.sender.Send(buf.String())
}

func (s *Sinker) Close() {}
