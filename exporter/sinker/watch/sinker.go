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

package watch

import (
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/exporter"
	"github.com/swotrace/swotrace/internal/pubsub"
)

func init() {
	exporter.Register(exporter.SinkerWatch, New)
}

// Sinker 将行发布到广播总线 由 server 的 /watch 路由消费
type Sinker struct {
	lines *pubsub.PubSub[common.Line]
}

func New(_ exporter.Config, deps exporter.Deps) (exporter.Sinker, error) {
	if deps.Lines == nil {
		return nil, errors.New("watch sinker requires a pubsub")
	}
	return &Sinker{lines: deps.Lines}, nil
}

func (s *Sinker) Name() string {
	return exporter.SinkerWatch
}

func (s *Sinker) Sink(line common.Line) error {
	s.lines.Publish(line)
	return nil
}

func (s *Sinker) Close() {}
