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

package console

import (
	"io"
	"os"
	"sync"

	"github.com/valyala/bytebufferpool"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/exporter"
)

func init() {
	exporter.Register(exporter.SinkerConsole, New)
}

// Sinker 将行直接输出到标准输出
type Sinker struct {
	mut  sync.Mutex
	wr   io.Writer
	crlf bool
}

func New(conf exporter.Config, _ exporter.Deps) (exporter.Sinker, error) {
	return newSinker(os.Stdout, conf.Console.CRLF), nil
}

func newSinker(wr io.Writer, crlf bool) *Sinker {
	return &Sinker{wr: wr, crlf: crlf}
}

func (s *Sinker) Name() string {
	return exporter.SinkerConsole
}

func (s *Sinker) Sink(line common.Line) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(line.Text)
	if s.crlf {
		buf.WriteByte('\r')
	}
	buf.WriteByte('\n')

	s.mut.Lock()
	defer s.mut.Unlock()
	_, err := s.wr.Write(buf.B)
	return err
}

func (s *Sinker) Close() {}
