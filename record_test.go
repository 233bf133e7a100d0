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

func mustUint8(t *testing.T, format pfd.Format) *pfd.IntegerType {
	t.Helper()
	it, err := pfd.NewIntegerType(format, pfd.ReadUint8, 8, pfd.BigEndian)
	require.NoError(t, err)
	return it
}

func mustInt16(t *testing.T, format pfd.Format) *pfd.IntegerType {
	t.Helper()
	it, err := pfd.NewIntegerType(format, pfd.ReadInt16, 16, pfd.BigEndian)
	require.NoError(t, err)
	return it
}

func TestRecordAddFieldBitOffsetPropagation(t *testing.T) {
	t.Parallel()

	rec := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, rec.AddField(pfd.Field{Name: "a", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, rec.AddField(pfd.Field{Name: "b", BitOffset: -1, Type: mustInt16(t, pfd.FormatBinary)}))

	fa, err := rec.FieldAt(0)
	require.NoError(t, err)
	require.EqualValues(t, 0, fa.BitOffset)

	fb, err := rec.FieldAt(1)
	require.NoError(t, err)
	require.EqualValues(t, 8, fb.BitOffset, "b must start right after a's 8 fixed bits")

	require.EqualValues(t, 24, rec.FixedBitSize())
}

func TestRecordAddFieldRejectsFormatMismatch(t *testing.T) {
	t.Parallel()

	rec := pfd.NewRecordType(pfd.FormatBinary)
	xmlField := mustUint8(t, pfd.FormatXML)
	err := rec.AddField(pfd.Field{Name: "bad", BitOffset: -1, Type: xmlField})
	require.Error(t, err)
	kind, ok := pfd.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pfd.DataDefinition, kind)
}

func TestRecordAddFieldAllowsAsciiInBinary(t *testing.T) {
	t.Parallel()

	rec := pfd.NewRecordType(pfd.FormatBinary)
	asciiField := mustUint8(t, pfd.FormatAscii)
	require.NoError(t, rec.AddField(pfd.Field{Name: "ok", BitOffset: -1, Type: asciiField}))
}

func TestRecordAddFieldRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	rec := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, rec.AddField(pfd.Field{Name: "x", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	err := rec.AddField(pfd.Field{Name: "x", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)})
	require.Error(t, err)
}

func TestUnionFieldMustBeOptional(t *testing.T) {
	t.Parallel()

	selector, err := selectorExpr()
	require.NoError(t, err)
	union := pfd.NewUnionRecordType(pfd.FormatBinary, selector)
	err = union.AddField(pfd.Field{Name: "notoptional", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)})
	require.Error(t, err)

	err = union.AddField(pfd.Field{Name: "ok", BitOffset: -1, Optional: true, Type: mustUint8(t, pfd.FormatBinary)})
	require.NoError(t, err)
}

func TestUnionRecordFixedSizeCollapsesOnMismatch(t *testing.T) {
	t.Parallel()

	selector, err := selectorExpr()
	require.NoError(t, err)
	union := pfd.NewUnionRecordType(pfd.FormatBinary, selector)
	require.NoError(t, union.AddField(pfd.Field{Name: "byte", BitOffset: -1, Optional: true, Type: mustUint8(t, pfd.FormatBinary)}))
	require.EqualValues(t, 8, union.FixedBitSize(), "single-field union's size tracks that field")

	require.NoError(t, union.AddField(pfd.Field{Name: "word", BitOffset: -1, Optional: true, Type: mustInt16(t, pfd.FormatBinary)}))
	require.EqualValues(t, -1, union.FixedBitSize(), "differing field sizes collapse union size to -1")
}
