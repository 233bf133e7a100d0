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

package pfd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pfdgo/pfd"
)

func TestNewIntegerTypeRejectsFloatReadType(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadFloat32, 32, pfd.BigEndian)
	require.Error(t, err)
}

func TestNewIntegerTypeRejectsOversizeBitSize(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadUint8, 9, pfd.BigEndian)
	require.Error(t, err)
	kind, ok := pfd.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pfd.DataDefinition, kind)
}

func TestNewIntegerTypeRejectsUnalignedLittleEndian(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadUint16, 12, pfd.LittleEndian)
	require.Error(t, err)
}

func TestNewIntegerTypeDefaultsBitSizeFromReadType(t *testing.T) {
	t.Parallel()
	it, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadInt32, 0, pfd.BigEndian)
	require.NoError(t, err)
	require.EqualValues(t, 32, it.FixedBitSize())
}

func TestIntegerAddMappingVaryingLengthCollapsesSize(t *testing.T) {
	t.Parallel()
	it, err := pfd.NewIntegerType(pfd.FormatAscii, pfd.ReadUint8, 8, pfd.BigEndian)
	require.NoError(t, err)
	it.AddMapping("x", 0)
	require.EqualValues(t, 8, it.FixedBitSize(), "a one-byte mapping matches the type's own width")
	it.AddMapping("longer", 1)
	require.EqualValues(t, -1, it.FixedBitSize())
}

func TestNewRealTypeRejectsIntegerReadType(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewRealType(pfd.FormatBinary, pfd.ReadUint32, pfd.BigEndian)
	require.Error(t, err)
}

func TestNewRealTypeSizeMatchesReadType(t *testing.T) {
	t.Parallel()
	rl, err := pfd.NewRealType(pfd.FormatBinary, pfd.ReadFloat64, pfd.BigEndian)
	require.NoError(t, err)
	require.EqualValues(t, 64, rl.FixedBitSize())
}

func TestNewTextTypeRequiresSizeOrExpr(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, -1, nil)
	require.Error(t, err)
}

func TestNewTextTypeRejectsNonByteAlignedSize(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, 12, nil)
	require.Error(t, err)
}

func TestNewTextTypeCharRequiresOneByte(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextChar, 16, nil)
	require.Error(t, err)

	ch, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextChar, 8, nil)
	require.NoError(t, err)
	require.EqualValues(t, 8, ch.FixedBitSize())
}

func TestTextSetFixedValueLengthMismatch(t *testing.T) {
	t.Parallel()
	tt, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, 32, nil)
	require.NoError(t, err)
	err = tt.SetFixedValue("short")
	require.Error(t, err)
	require.NoError(t, tt.SetFixedValue("4byt"))
}

func TestNewRawTypeRequiresSizeOrExpr(t *testing.T) {
	t.Parallel()
	_, err := pfd.NewRawType(pfd.FormatBinary, -1, nil)
	require.Error(t, err)
}

func TestRawSetFixedValueLengthMismatch(t *testing.T) {
	t.Parallel()
	r, err := pfd.NewRawType(pfd.FormatBinary, 3, nil)
	require.NoError(t, err)
	require.Error(t, r.SetFixedValue([]byte{1, 2}))
	require.NoError(t, r.SetFixedValue([]byte{1, 2, 3}))
}
