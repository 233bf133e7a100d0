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
	"github.com/pfdgo/pfd/internal/expr"
)

// openFixedRecord wraps root in a single-definition, detection-free product
// class and opens data against it via OpenAs.
func openFixedRecord(t *testing.T, root *pfd.RecordType, data []byte) *pfd.Product {
	t.Helper()

	def := &pfd.ProductDefinition{Format: pfd.FormatBinary, Version: 1, Name: "Fixed", RootType: root}
	pc := &pfd.ProductClass{
		Name:       "FixedClass",
		Types:      map[string]*pfd.ProductType{"Fixed": {Name: "Fixed", Definitions: map[int]*pfd.ProductDefinition{1: def}}},
		NamedTypes: map[string]pfd.Type{},
	}
	dict := pfd.NewDataDictionary()
	require.NoError(t, dict.AddProductClass(pc))

	dir := t.TempDir()
	path := writeProduct(t, dir, "fixed.bin", data)
	p, err := pfd.OpenAs(path, "FixedClass", "Fixed", 1, pfd.DefaultOptions(), dict)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// TestRelBitOffsetCase3SkipsUnavailablePredecessor reproduces a record
// {a: u8, b?: u8 when a==0, c: u8}: since b is optional its bit_offset is
// still resolved at construction time (a is fixed and non-optional), but
// c's is not, forcing the case-3 predecessor walk to decide whether b's 8
// bits count toward c's offset by evaluating b's available_expr
// against the record scope, not against b's own (scalar) frame.
func TestRelBitOffsetCase3SkipsUnavailablePredecessor(t *testing.T) {
	t.Parallel()

	available, err := expr.Parse("a == 0")
	require.NoError(t, err)

	root := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, root.AddField(pfd.Field{Name: "a", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, root.AddField(pfd.Field{
		Name: "b", BitOffset: -1, Optional: true, AvailableExpr: available, Type: mustUint8(t, pfd.FormatBinary),
	}))
	require.NoError(t, root.AddField(pfd.Field{Name: "c", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))

	p := openFixedRecord(t, root, []byte{0x05, 0x09})
	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)

	require.NoError(t, cur.GotoRecordFieldByIndex(2))
	v, err := cur.ReadInt()
	require.NoError(t, err)
	require.EqualValues(t, 9, v, "a != 0 means b is absent, so c must sit right after a's single byte")
}

// TestGetRecordFieldAvailableStatusOnUnion ensures availability for a union
// record's fields is derived from which field the union selector currently
// picks, not from each field's own (typically nil) available_expr.
func TestGetRecordFieldAvailableStatusOnUnion(t *testing.T) {
	t.Parallel()

	selector, err := expr.Parse("kind")
	require.NoError(t, err)

	union := pfd.NewUnionRecordType(pfd.FormatBinary, selector)
	require.NoError(t, union.AddField(pfd.Field{Name: "a", BitOffset: -1, Optional: true, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, union.AddField(pfd.Field{Name: "b", BitOffset: -1, Optional: true, Type: mustUint8(t, pfd.FormatBinary)}))

	root := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, root.AddField(pfd.Field{Name: "kind", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, root.AddField(pfd.Field{Name: "payload", BitOffset: -1, Type: union}))

	p := openFixedRecord(t, root, []byte{0x00, 0x07})
	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)

	require.NoError(t, cur.GotoRecordFieldByIndex(1))
	aAvail, err := cur.GetRecordFieldAvailableStatus(0)
	require.NoError(t, err)
	require.True(t, aAvail, "kind == 0 selects field a")
	bAvail, err := cur.GetRecordFieldAvailableStatus(1)
	require.NoError(t, err)
	require.False(t, bAvail, "field b is not the selected union member")
}

// TestGotoNextRecordFieldEvaluatesOffsetExprInRecordScope moves to a field
// whose bit_offset_expr names a sibling by bare identifier: the expression
// only resolves from the enclosing record's scope, so advancing from the
// previous field must not evaluate it against that field's own leaf frame.
func TestGotoNextRecordFieldEvaluatesOffsetExprInRecordScope(t *testing.T) {
	t.Parallel()

	offsetExpr, err := expr.Parse("8 * len")
	require.NoError(t, err)
	text, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, 24, nil)
	require.NoError(t, err)

	root := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, root.AddField(pfd.Field{Name: "len", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, root.AddField(pfd.Field{Name: "data", BitOffset: -1, BitOffsetExpr: offsetExpr, Type: text}))

	p := openFixedRecord(t, root, []byte{0x01, 'f', 'o', 'o'})
	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)

	require.NoError(t, cur.GotoFirstRecordField())
	require.NoError(t, cur.GotoNextRecordField())

	off, err := cur.GetFileBitOffset()
	require.NoError(t, err)
	require.EqualValues(t, 8, off)
	s, err := cur.ReadString()
	require.NoError(t, err)
	require.Equal(t, "foo", s)
}

// TestRecordBitSizeHonoursFieldOffsetExpr sizes a record whose second
// field sits behind an offset-expression gap and is itself a
// length-prefixed nested record, so its size depends on the data at its
// real position: a walker that packs fields end to end instead of
// honouring the offset expression would read the wrong length byte.
func TestRecordBitSizeHonoursFieldOffsetExpr(t *testing.T) {
	t.Parallel()

	blenSize, err := expr.Parse("8 * ../blen")
	require.NoError(t, err)
	bdata, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, -1, blenSize)
	require.NoError(t, err)
	b := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, b.AddField(pfd.Field{Name: "blen", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, b.AddField(pfd.Field{Name: "bdata", BitOffset: -1, Type: bdata}))

	offsetExpr, err := expr.Parse("16")
	require.NoError(t, err)
	root := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, root.AddField(pfd.Field{Name: "a", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, root.AddField(pfd.Field{Name: "b", BitOffset: -1, BitOffsetExpr: offsetExpr, Type: b}))

	// Byte 1 is a gap; misplacing b there would read 0xff as its length.
	p := openFixedRecord(t, root, []byte{0x09, 0xff, 0x02, 'h', 'i'})
	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)

	size, err := cur.GetBitSize()
	require.NoError(t, err)
	require.EqualValues(t, 32, size, "a (8) plus b (8 + 16), the gap byte contributes nothing")

	require.NoError(t, cur.Goto("b/bdata"))
	s, err := cur.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hi", s)
}
