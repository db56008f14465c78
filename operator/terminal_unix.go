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

//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package operator

import (
	"golang.org/x/sys/unix"
)

// makeCbreak 关闭行缓冲和回显 但保留 ISIG 和 OPOST
//
// Ctrl-C 依旧产生 SIGINT 输出的 \n 依旧会被转换成 \r\n
// VMIN=0 VTIME=1 让 read 最多阻塞 100ms 以便及时响应退出
func makeCbreak(fd int) (restore func() error, poll bool, err error) {
	old, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, false, err
	}

	t := *old
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.IEXTEN
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 1
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &t); err != nil {
		return nil, false, err
	}

	return func() error {
		return unix.IoctlSetTermios(fd, ioctlSetTermios, old)
	}, true, nil
}
