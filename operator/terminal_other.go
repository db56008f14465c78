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

//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package operator

import (
	"golang.org/x/term"
)

func makeCbreak(fd int) (restore func() error, poll bool, err error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, false, err
	}
	return func() error {
		return term.Restore(fd, state)
	}, false, nil
}
