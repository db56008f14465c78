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

package common

import (
	"time"
)

// Line 代表某个 ITM 通道上已经完整接收的一行文本
//
// Text 已经拼接了通道前缀 不包含行尾的换行符
type Line struct {
	Channel int       `json:"channel"`
	Text    string    `json:"text"`
	Time    time.Time `json:"time"`
}
