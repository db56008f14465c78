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
	"strings"

	"github.com/pkg/errors"
)

// Kind 操作员事件类型
type Kind string

const (
	KindReset  Kind = "reset"
	KindFlash  Kind = "flash"
	KindLock   Kind = "lock"
	KindUnlock Kind = "unlock"
	KindQuit   Kind = "quit"
)

// Kinds 返回全部事件类型
func Kinds() []Kind {
	return []Kind{KindReset, KindFlash, KindLock, KindUnlock, KindQuit}
}

// ParseKind 解析事件名称 大小写不敏感
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", errors.Errorf("unknown event %q", s)
}

const (
	SourceKey   = "key"
	SourceHTTP  = "http"
	SourceWatch = "watch"
)

// Event 离散的操作员事件
type Event struct {
	Kind   Kind
	Source string
}

func (e Event) String() string {
	return string(e.Kind) + "@" + e.Source
}
