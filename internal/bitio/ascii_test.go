// Copyright 2025 The PFD Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bitio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pfdgo/pfd/internal/bitio"
)

func TestDefaultASCIINumberParserParseInt(t *testing.T) {
	t.Parallel()
	p := bitio.DefaultASCIINumberParser{}

	tests := []struct {
		text string
		want int64
	}{
		{"  42", 42},
		{"-7", -7},
		{"+13\n", 13},
	}
	for _, tc := range tests {
		got, err := p.ParseInt(tc.text)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := p.ParseInt("   ")
	require.Error(t, err)
}

func TestDefaultASCIINumberParserParseFloat(t *testing.T) {
	t.Parallel()
	p := bitio.DefaultASCIINumberParser{}

	got, err := p.ParseFloat(" 1.5e3 ")
	require.NoError(t, err)
	require.Equal(t, 1500.0, got)

	// Fortran-style D exponent marker.
	got, err = p.ParseFloat("2.5D1")
	require.NoError(t, err)
	require.Equal(t, 25.0, got)

	_, err = p.ParseFloat("")
	require.Error(t, err)
}

func TestLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		data       string
		offset     int64
		includeEOL bool
		want       string
	}{
		{"lf", "hello\nworld", 0, false, "hello"},
		{"lf-with-eol", "hello\nworld", 0, true, "hello\n"},
		{"crlf", "hello\r\nworld", 0, false, "hello"},
		{"crlf-with-eol", "hello\r\nworld", 0, true, "hello\r\n"},
		{"bare-cr", "hello\rworld", 0, false, "hello"},
		{"no-terminator", "hello", 0, false, "hello"},
		{"mid-buffer", "a\nbb\nccc", 2, false, "bb"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := bitio.Line([]byte(tc.data), tc.offset, tc.includeEOL)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLineOffsetOutOfRange(t *testing.T) {
	t.Parallel()
	_, err := bitio.Line([]byte("hi"), 10, false)
	require.Error(t, err)
}
