// go-dwin
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-dwin.
//
// go-dwin is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-dwin is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-dwin; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package dwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSplitAddress_RoundTrip(t *testing.T) {
	t.Parallel()

	for v := 0; v <= 0xFFFF; v++ {
		addr := Address(v)
		high, low := SplitAddress(addr)
		if got := MergeAddress(high, low); got != addr {
			t.Fatalf("MergeAddress(SplitAddress(%s)) = %s", addr, got)
		}
	}

	for high := 0; high <= 0xFF; high++ {
		for low := 0; low <= 0xFF; low++ {
			h, l := SplitAddress(MergeAddress(byte(high), byte(low)))
			if h != byte(high) || l != byte(low) {
				t.Fatalf("SplitAddress(MergeAddress(%02X, %02X)) = %02X, %02X", high, low, h, l)
			}
		}
	}
}

func TestMergeAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Address(0x1234), MergeAddress(0x12, 0x34))
	assert.Equal(t, Address(0x00FF), MergeAddress(0x00, 0xFF))
	assert.Equal(t, []byte{0x50, 0x00}, Address(0x5000).Bytes())
}

func TestHex16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want  string
		value uint16
	}{
		{value: 0, want: "0x0000"},
		{value: 0x0084, want: "0x0084"},
		{value: 0xABCD, want: "0xABCD"},
		{value: 0x00ff, want: "0x00FF"},
		{value: 0xFFFF, want: "0xFFFF"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Hex16(tt.value))
			assert.Equal(t, tt.want, Address(tt.value).String())
		})
	}
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{name: "prefixed", input: "0x5000", want: 0x5000},
		{name: "upper_prefix", input: "0XabCD", want: 0xABCD},
		{name: "bare", input: "84", want: 0x0084},
		{name: "dgus_style", input: "h1200", want: 0x1200},
		{name: "whitespace", input: " 0x10 ", want: 0x0010},
		{name: "too_large", input: "0x10000", wantErr: true},
		{name: "not_hex", input: "0x12G4", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
