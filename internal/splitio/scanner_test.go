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

package splitio

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanner(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		delim byte
		want  [][]byte
	}{
		{
			name:  "EmptyInput",
			input: []byte{},
			delim: CharLF,
			want:  nil,
		},
		{
			name:  "SingleLineWithoutLF",
			input: []byte("hello world"),
			delim: CharLF,
			want: [][]byte{
				[]byte("hello world"),
			},
		},
		{
			name:  "MultipleLines",
			input: []byte("line1\nline2\nline3\n"),
			delim: CharLF,
			want: [][]byte{
				[]byte("line1\n"),
				[]byte("line2\n"),
				[]byte("line3\n"),
			},
		},
		{
			name:  "ConsecutiveDelims",
			input: []byte("\x1a\x1a"),
			delim: CharSUB,
			want: [][]byte{
				[]byte("\x1a"),
				[]byte("\x1a"),
			},
		},
		{
			name:  "TclFrames",
			input: []byte("type target_trace data 0148\r\n\x1a0\x1apartial"),
			delim: CharSUB,
			want: [][]byte{
				[]byte("type target_trace data 0148\r\n\x1a"),
				[]byte("0\x1a"),
				[]byte("partial"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner(tt.input, tt.delim)
			var lines [][]byte
			for scanner.Scan() {
				lines = append(lines, scanner.Bytes())
			}
			assert.Equal(t, tt.want, lines)
		})
	}
}

type mockScanner interface {
	Scan() bool
	Bytes() []byte
}

func BenchmarkZeroCopyScanner(b *testing.B) {
	benchmarkScanner(b, func(b []byte) mockScanner {
		return NewScanner(b, CharLF)
	})
}

func BenchmarkBufioScanner(b *testing.B) {
	benchmarkScanner(b, func(b []byte) mockScanner {
		return bufio.NewScanner(bytes.NewBuffer(b))
	})
}

func benchmarkScanner(b *testing.B, f func([]byte) mockScanner) {
	var input []byte
	input = append(input, bytes.Repeat([]byte(strings.Repeat("x", 1024)+"\n"), 100)...)

	b.ReportAllocs()
	b.ResetTimer()
	b.SetBytes(int64(len(input)))

	b.RunParallel(func(pb *testing.PB) {
		var n int
		for pb.Next() {
			scanner := f(input)
			for scanner.Scan() {
				line := scanner.Bytes()
				n += len(line)
			}
		}
	})
}
