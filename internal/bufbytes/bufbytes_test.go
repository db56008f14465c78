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

package bufbytes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufBytesWrite(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		inputs   [][]byte
		expected []byte
		full     bool
	}{
		{
			name:     "Empty write",
			size:     10,
			inputs:   [][]byte{},
			expected: nil,
		},
		{
			name:     "Single fit",
			size:     5,
			inputs:   [][]byte{[]byte("hello")},
			expected: []byte("hello"),
			full:     true,
		},
		{
			name:     "Single write exceeds capacity",
			size:     5,
			inputs:   [][]byte{[]byte("helloworld")},
			expected: []byte("hello"),
			full:     true,
		},
		{
			name:     "Multiple inputs within capacity",
			size:     12,
			inputs:   [][]byte{[]byte("hello"), []byte("world")},
			expected: []byte("helloworld"),
		},
		{
			name:     "Multiple inputs exceed capacity",
			size:     7,
			inputs:   [][]byte{[]byte("hello"), []byte("world")},
			expected: []byte("hellowo"),
			full:     true,
		},
		{
			name:     "Unlimited",
			size:     0,
			inputs:   [][]byte{[]byte("hello"), []byte("world"), []byte("!")},
			expected: []byte("helloworld!"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.size)
			for _, input := range tt.inputs {
				b.Write(input)
			}
			assert.Equal(t, tt.expected, b.Clone())
			assert.Equal(t, tt.full, b.Full())
		})
	}
}

func TestBufBytesWriteByte(t *testing.T) {
	b := New(3)
	for _, c := range []byte("abcd") {
		assert.NoError(t, b.WriteByte(c))
	}
	assert.Equal(t, "abc", b.Text())
	assert.Equal(t, 3, b.Len())

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Full())

	unlimited := New(0)
	for i := 0; i < 4096; i++ {
		unlimited.WriteByte('x')
	}
	assert.Equal(t, 4096, unlimited.Len())
	assert.False(t, unlimited.Full())
}
