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

type Config struct {
	Console ConsoleConfig `config:"console"`
	File    FileConfig    `config:"file"`
	Watch   WatchConfig   `config:"watch"`
}

type ConsoleConfig struct {
	Enabled bool `config:"enabled"`
	// CRLF 终端处于 raw 模式且关闭了 OPOST 时需要显式输出 \r\n
	CRLF bool `config:"crlf"`
}

type FileConfig struct {
	Enabled    bool   `config:"enabled"`
	Format     string `config:"format"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"`
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"`
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

func (fc *FileConfig) Validate() {
	if fc.Format != FormatJSON {
		fc.Format = FormatText
	}
	if fc.Filename == "" {
		fc.Filename = "trace.log"
	}
	if fc.MaxSize <= 0 {
		fc.MaxSize = 100
	}
	if fc.MaxAge <= 0 {
		fc.MaxAge = 7
	}
	if fc.MaxBackups <= 0 {
		fc.MaxBackups = 10
	}
}

type WatchConfig struct {
	Enabled bool `config:"enabled"`
}

// DefaultConfig 未配置 exporter 时只输出到终端
func DefaultConfig() Config {
	return Config{
		Console: ConsoleConfig{Enabled: true},
	}
}
