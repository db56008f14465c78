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

package dispatcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	// Image 默认烧写的固件镜像
	Image string `config:"image"`

	// FlashAddress 镜像写入地址 以字符串保存以保留十六进制写法
	FlashAddress string `config:"flashAddress"`

	// FlashDriver lock/unlock 使用的 flash 驱动名称
	FlashDriver string `config:"flashDriver"`

	// Timeout 单个操作 (包含多条命令) 的最长等待时间
	Timeout time.Duration `config:"timeout"`

	// WatchImage 镜像变化时自动烧写
	WatchImage bool          `config:"watchImage"`
	Debounce   time.Duration `config:"debounce"`
}

// Check 补全默认值并校验
func (c *Config) Check() error {
	if c.Image == "" {
		c.Image = "main.bin"
	}
	if c.FlashAddress == "" {
		c.FlashAddress = "0x08000000"
	}
	if c.FlashDriver == "" {
		c.FlashDriver = "stm32l4x"
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Minute
	}

	addr := strings.TrimSpace(c.FlashAddress)
	if _, err := strconv.ParseUint(addr, 0, 64); err != nil {
		return errors.Wrapf(err, "invalid flash address %q", c.FlashAddress)
	}
	c.FlashAddress = addr

	if strings.ContainsAny(c.FlashDriver, " \t{}[]$\"") {
		return errors.Errorf("invalid flash driver %q", c.FlashDriver)
	}
	return nil
}
