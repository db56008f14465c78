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

package tcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTrace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
		err   bool
	}{
		{
			name:  "HelloTrace",
			input: "type target_trace data 01480165016c016c016f010a\r\n",
			want:  []byte{0x01, 'H', 0x01, 'e', 0x01, 'l', 0x01, 'l', 0x01, 'o', 0x01, '\n'},
		},
		{
			name:  "LeadingZeros",
			input: "type target_trace data 000000000080\r\n",
			want:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80},
		},
		{
			name:  "EmptyData",
			input: "type target_trace data \r\n",
			want:  []byte{},
		},
		{
			name:  "OddLength",
			input: "type target_trace data 014\r\n",
			err:   true,
		},
		{
			name:  "InvalidHex",
			input: "type target_trace data zz\r\n",
			err:   true,
		},
		{
			name:  "OtherNotification",
			input: "type target_event event halted",
			err:   true,
		},
		{
			name:  "CommandResponse",
			input: "0",
			err:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodeTrace([]byte(tt.input))
			if tt.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestEncodeTrace(t *testing.T) {
	input := []byte{0x01, 'H', 0x01, 'i', 0x01, '\n'}
	frame := EncodeTrace(input)
	assert.Equal(t, "type target_trace data 01480169010a\r\n", string(frame))

	data, err := DecodeTrace(frame)
	assert.NoError(t, err)
	assert.Equal(t, input, data)
}

func TestIsNotification(t *testing.T) {
	assert.True(t, IsNotification([]byte("type target_trace data 00")))
	assert.True(t, IsNotification([]byte("type target_event event reset-start")))
	assert.False(t, IsNotification([]byte("0")))
	assert.False(t, IsNotification([]byte("")))
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "hello", want: `"hello"`},
		{input: "", want: `""`},
		{input: `ERROR: "x" [y] $z \w`, want: `"ERROR: \"x\" \[y\] \$z \\w"`},
		{input: "a\x1ab", want: `"ab"`},
		{input: "a\r\nb", want: `"a\r\nb"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.input))
		})
	}
}
