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

const (
	// App 应用程序名称
	App = "swotrace"

	// Version 应用程序版本
	Version = "v0.1.0"

	// MaxChannels ITM 激励端口 (Stimulus Port) 数量 即通道号范围为 [0, 31]
	MaxChannels = 32

	// ReadBlockSize 从 Tcl Server / 文件中读取数据的单次块大小
	//
	// OpenOCD 的 target_trace 通知以十六进制文本传输 单条通知通常远小于此值
	// 但离线解析原始 ITM 文件时 更大的块能够减少 syscall 次数
	ReadBlockSize = 4096
)
