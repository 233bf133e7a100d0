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
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pfdgo/pfd"
)

// openWithOptions is openFixedRecord with caller-chosen Options.
func openWithOptions(t *testing.T, root *pfd.RecordType, data []byte, opts pfd.Options) *pfd.Product {
	t.Helper()

	def := &pfd.ProductDefinition{Format: pfd.FormatBinary, Version: 1, Name: "Conv", RootType: root}
	pc := &pfd.ProductClass{
		Name:       "ConvClass",
		Types:      map[string]*pfd.ProductType{"Conv": {Name: "Conv", Definitions: map[int]*pfd.ProductDefinition{1: def}}},
		NamedTypes: map[string]pfd.Type{},
	}
	dict := pfd.NewDataDictionary()
	require.NoError(t, dict.AddProductClass(pc))

	path := writeProduct(t, t.TempDir(), "conv.bin", data)
	p, err := pfd.OpenAs(path, "ConvClass", "Conv", 1, opts, dict)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func convRecord(t *testing.T) *pfd.RecordType {
	t.Helper()

	scaled, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadUint16, 16, pfd.BigEndian)
	require.NoError(t, err)
	scaled.Conversion = &pfd.Conversion{Numerator: 1, Denominator: 100, AddOffset: 0.5}

	sentinel, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadUint16, 16, pfd.BigEndian)
	require.NoError(t, err)
	sentinel.Conversion = &pfd.Conversion{Numerator: 1, Denominator: 1, HasInvalid: true, InvalidValue: 65535}

	root := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, root.AddField(pfd.Field{Name: "scaled", BitOffset: -1, Type: scaled}))
	require.NoError(t, root.AddField(pfd.Field{Name: "sentinel", BitOffset: -1, Type: sentinel}))
	return root
}

func TestReadFloatAppliesConversion(t *testing.T) {
	t.Parallel()

	// scaled = 200, sentinel = 0xFFFF (the invalid-value marker).
	data := []byte{0x00, 0xc8, 0xff, 0xff}
	p := openWithOptions(t, convRecord(t), data, pfd.DefaultOptions())

	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)
	require.NoError(t, cur.Goto("scaled"))

	v, err := cur.ReadFloat()
	require.NoError(t, err)
	require.InDelta(t, 2.5, v, 1e-12)

	// The converted value no longer fits the storage type.
	_, err = cur.ReadInt()
	require.Error(t, err)
	rt, err := cur.GetReadType()
	require.NoError(t, err)
	require.Equal(t, pfd.ReadFloat64, rt)

	require.NoError(t, cur.Goto("/sentinel"))
	v, err = cur.ReadFloat()
	require.NoError(t, err)
	require.True(t, math.IsNaN(v))
}

func TestDisabledConversionsReadRawValues(t *testing.T) {
	t.Parallel()

	data := []byte{0x00, 0xc8, 0xff, 0xff}
	p := openWithOptions(t, convRecord(t), data, pfd.NewOptions(pfd.WithConversions(false)))

	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)
	require.NoError(t, cur.Goto("scaled"))

	raw, err := cur.ReadInt()
	require.NoError(t, err)
	require.EqualValues(t, 200, raw)
	rt, err := cur.GetReadType()
	require.NoError(t, err)
	require.Equal(t, pfd.ReadUint16, rt)
}

func TestAsciiIntegerMappingRead(t *testing.T) {
	t.Parallel()

	flag, err := pfd.NewIntegerType(pfd.FormatAscii, pfd.ReadUint8, 8, pfd.BigEndian)
	require.NoError(t, err)
	flag.AddMapping("yes", 1)
	flag.AddMapping("no", 0)

	root := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, root.AddField(pfd.Field{Name: "flag", BitOffset: 0, Type: flag}))

	p := openWithOptions(t, root, []byte("no"), pfd.DefaultOptions())
	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)
	require.NoError(t, cur.Goto("flag"))

	v, err := cur.ReadInt()
	require.NoError(t, err)
	require.EqualValues(t, 0, v)

	size, err := cur.GetBitSize()
	require.NoError(t, err)
	require.EqualValues(t, 16, size, "the matched mapping text is two bytes")
}
