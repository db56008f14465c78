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

package file

import (
	"io"
	"sync"

	"github.com/valyala/bytebufferpool"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/exporter"
	"github.com/swotrace/swotrace/internal/json"
)

func init() {
	exporter.Register(exporter.SinkerFile, New)
}

const timeLayout = "2006-01-02 15:04:05.000"

// Sinker 将行写入滚动文件 支持 text 和 json 两种格式
type Sinker struct {
	mut     sync.Mutex
	wr      io.WriteCloser
	encoder json.Encoder
	cfg     *exporter.FileConfig
}

func New(conf exporter.Config, _ exporter.Deps) (exporter.Sinker, error) {
	cfg := &conf.File
	cfg.Validate()

	wr := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
	}
	return newSinker(wr, cfg), nil
}

func newSinker(wr io.WriteCloser, cfg *exporter.FileConfig) *Sinker {
	return &Sinker{
		wr:      wr,
		cfg:     cfg,
		encoder: json.NewEncoder(wr),
	}
}

func (s *Sinker) Name() string {
	return exporter.SinkerFile
}

func (s *Sinker) Sink(line common.Line) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.cfg.Format == exporter.FormatJSON {
		return s.encoder.Encode(line)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = line.Time.AppendFormat(buf.B, timeLayout)
	buf.WriteByte(' ')
	buf.WriteString(line.Text)
	buf.WriteByte('\n')

	_, err := s.wr.Write(buf.B)
	return err
}

func (s *Sinker) Close() {
	s.wr.Close()
}
