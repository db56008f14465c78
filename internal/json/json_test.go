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

package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	type T struct {
		Channel int    `json:"channel"`
		Text    string `json:"text"`
	}
	assert.NoError(t, enc.Encode(T{Channel: 1, Text: "WARNING: low battery"}))
	assert.Equal(t, `{"channel":1,"text":"WARNING: low battery"}`+"\n", buf.String())

	var dst T
	assert.NoError(t, Unmarshal(bytes.TrimSpace(buf.Bytes()), &dst))
	assert.Equal(t, 1, dst.Channel)

	b, err := Marshal(dst)
	assert.NoError(t, err)
	assert.Equal(t, `{"channel":1,"text":"WARNING: low battery"}`, string(b))
}
