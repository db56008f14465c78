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

package itm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name  string
		input byte
		want  Header
	}{
		{
			name:  "SWIT channel 0 size 1",
			input: 0x01,
			want:  Header{Kind: KindInstrumentation, Channel: 0, Size: 1},
		},
		{
			name:  "SWIT channel 1 size 2",
			input: 0x0A,
			want:  Header{Kind: KindInstrumentation, Channel: 1, Size: 2},
		},
		{
			name:  "SWIT channel 31 size 4",
			input: 0xFB,
			want:  Header{Kind: KindInstrumentation, Channel: 31, Size: 4},
		},
		{
			name:  "DWT event counter",
			input: 0x05,
			want:  Header{Kind: KindHardware, Channel: 0, Size: 1},
		},
		{
			name:  "DWT PC sample",
			input: 0x17,
			want:  Header{Kind: KindHardware, Channel: 2, Size: 4},
		},
		{
			name:  "Sync",
			input: 0x00,
			want:  Header{Kind: KindSync},
		},
		{
			name:  "Overflow",
			input: 0x70,
			want:  Header{Kind: KindOverflow},
		},
		{
			name:  "Local TS single byte",
			input: 0x30,
			want:  Header{Kind: KindLocalTimestamp},
		},
		{
			name:  "Local TS continued",
			input: 0xC0,
			want:  Header{Kind: KindLocalTimestamp, Size: 4, Continued: true},
		},
		{
			name:  "Extension single byte",
			input: 0x08,
			want:  Header{Kind: KindExtension},
		},
		{
			name:  "Extension continued",
			input: 0x8C,
			want:  Header{Kind: KindExtension, Size: 4, Continued: true},
		},
		{
			name:  "GTS1",
			input: 0x94,
			want:  Header{Kind: KindGlobalTimestamp1, Size: 4, Continued: true},
		},
		{
			name:  "GTS2",
			input: 0xB4,
			want:  Header{Kind: KindGlobalTimestamp2, Size: 6, Continued: true},
		},
		{
			name:  "Reserved",
			input: 0x04,
			want:  Header{Kind: KindReserved},
		},
		{
			name:  "Reserved 0xF4",
			input: 0xF4,
			want:  Header{Kind: KindReserved},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHeader(tt.input))
		})
	}
}

func TestParseHeaderInstrumentationShape(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		h := ParseHeader(b)
		isSWIT := b&0x03 != 0 && b&0x04 == 0
		assert.Equal(t, isSWIT, h.Kind == KindInstrumentation, "header 0x%02X", b)
		if isSWIT {
			assert.Contains(t, []uint8{1, 2, 4}, h.Size)
			assert.Less(t, h.Channel, uint8(32))
		}
	}
}

func TestPacket(t *testing.T) {
	pkt := NewPacket(3, []byte("abcdef"))
	assert.Equal(t, uint8(4), pkt.Size)
	assert.Equal(t, []byte("abcd"), pkt.Payload())
	assert.Equal(t, `ITM:SWIT; Port 0x03; 4 bytes; Data "abcd"`, pkt.String())

	pkt = NewPacket(0, []byte("\n"))
	assert.Equal(t, []byte("\n"), pkt.Payload())
}

func TestKindString(t *testing.T) {
	seen := make(map[string]bool)
	for _, k := range Kinds() {
		s := k.String()
		assert.NotEqual(t, "unknown", s)
		assert.False(t, seen[s])
		seen[s] = true
	}
	assert.Equal(t, "unknown", numKinds.String())
}
