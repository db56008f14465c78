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

package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swotrace/swotrace/common"
)

func TestSink(t *testing.T) {
	tests := []struct {
		name string
		crlf bool
		want string
	}{
		{name: "LF", want: "WARNING: low battery\n"},
		{name: "CRLF", crlf: true, want: "WARNING: low battery\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := newSinker(&buf, tt.crlf)
			assert.NoError(t, s.Sink(common.Line{Text: "WARNING: low battery"}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
