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

package exporter

import (
	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/internal/pubsub"
	"github.com/swotrace/swotrace/stream"
)

const (
	SinkerConsole = "console"
	SinkerFile    = "file"
	SinkerWatch   = "watch"
	SinkerEcho    = "echo"
)

// Sinker 负责将完整的行 `写入` 到指定目标中
type Sinker interface {
	stream.Sinker

	// Close 关闭并进行资源清理
	Close()
}

// Sender 以非阻塞的方式向调试器发送 Tcl 脚本
type Sender interface {
	Send(script string) error
}

// Deps Sinker 创建时依赖的运行时对象
type Deps struct {
	Sender Sender
	Lines  *pubsub.PubSub[common.Line]
}

type CreateFunc func(Config, Deps) (Sinker, error)

var sinkFactory = map[string]CreateFunc{}

func Get(name string) CreateFunc {
	return sinkFactory[name]
}

func Register(name string, createFunc CreateFunc) {
	sinkFactory[name] = createFunc
}
