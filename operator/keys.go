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

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Bindings 按键到事件的映射
type Bindings map[byte]Kind

// DefaultBindings 默认按键
//
//	Ctrl-R: reset   Ctrl-F: flash
//	Ctrl-L: lock    Ctrl-U: unlock
func DefaultBindings() Bindings {
	return Bindings{
		0x12: KindReset,
		0x06: KindFlash,
		0x0c: KindLock,
		0x15: KindUnlock,
	}
}

// ParseKey 解析按键描述
//
// 支持 `ctrl-x` / `^X` 形式的控制键以及单个可打印字符
func ParseKey(s string) (byte, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)

	var letter string
	switch {
	case strings.HasPrefix(lower, "ctrl-"):
		letter = lower[len("ctrl-"):]
	case strings.HasPrefix(lower, "ctrl+"):
		letter = lower[len("ctrl+"):]
	case strings.HasPrefix(lower, "^") && len(lower) == 2:
		letter = lower[1:]
	case len(raw) == 1 && raw[0] > 0x20 && raw[0] < 0x7f:
		return raw[0], nil
	default:
		return 0, errors.Errorf("invalid key %q", s)
	}

	if len(letter) != 1 || letter[0] < 'a' || letter[0] > 'z' {
		return 0, errors.Errorf("invalid key %q", s)
	}
	return letter[0] - 'a' + 1, nil
}

// KeyName 返回按键的可读名称
func KeyName(b byte) string {
	if b >= 1 && b <= 26 {
		return "Ctrl-" + string(rune('A'+b-1))
	}
	return string(rune(b))
}

// ParseBindings 解析 key -> event 的配置 所有错误会被合并返回
func ParseBindings(m map[string]string) (Bindings, error) {
	bindings := make(Bindings)

	var errs error
	for key, event := range m {
		b, err := ParseKey(key)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		kind, err := ParseKind(event)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "key %s", key))
			continue
		}
		if prev, ok := bindings[b]; ok && prev != kind {
			errs = multierror.Append(errs, errors.Errorf("key %s bound to both %s and %s", key, prev, kind))
			continue
		}
		bindings[b] = kind
	}
	if errs != nil {
		return nil, errs
	}
	return bindings, nil
}

// Lookup 查找按键对应的事件
func (b Bindings) Lookup(key byte) (Kind, bool) {
	k, ok := b[key]
	return k, ok
}
