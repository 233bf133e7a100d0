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

func TestNoDataTypeIsZeroSizeSingleton(t *testing.T) {
	t.Parallel()

	a := pfd.NoDataType(pfd.FormatBinary)
	b := pfd.NoDataType(pfd.FormatBinary)
	require.Same(t, a, b, "repeated calls for the same format must share one singleton")
	require.EqualValues(t, 0, a.FixedBitSize())
	require.Equal(t, pfd.SpecialNoData, a.Kind)
}

func TestNewVSFIntegerTypeRejectsWideScaleFactor(t *testing.T) {
	t.Parallel()

	wideScale, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadInt64, 64, pfd.BigEndian)
	require.NoError(t, err)
	value := mustInt16(t, pfd.FormatBinary)

	_, err = pfd.NewVSFIntegerType(pfd.FormatBinary, wideScale, value)
	require.Error(t, err)
	kind, ok := pfd.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pfd.DataDefinition, kind)
}

func TestNewVSFIntegerTypeComputesCombinedSize(t *testing.T) {
	t.Parallel()

	scale := mustUint8(t, pfd.FormatBinary)
	value := mustInt16(t, pfd.FormatBinary)

	s, err := pfd.NewVSFIntegerType(pfd.FormatBinary, scale, value)
	require.NoError(t, err)
	require.EqualValues(t, 24, s.FixedBitSize())
	require.Equal(t, pfd.SpecialVSFInteger, s.Kind)
}

func TestNewTimeTypeRejectsNonTextNonRecordBase(t *testing.T) {
	t.Parallel()

	base := mustInt16(t, pfd.FormatBinary)
	valueExpr, err := expr.Parse(".")
	require.NoError(t, err)

	_, err = pfd.NewTimeType(pfd.FormatBinary, base, valueExpr)
	require.Error(t, err)
	kind, ok := pfd.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pfd.DataDefinition, kind)
}

func TestNewTimeTypeRequiresValueExpr(t *testing.T) {
	t.Parallel()

	base, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, 32, nil)
	require.NoError(t, err)

	_, err = pfd.NewTimeType(pfd.FormatAscii, base, nil)
	require.Error(t, err)
}

func TestSpecialAddMappingOnlyValidOnTimeKind(t *testing.T) {
	t.Parallel()

	scale := mustUint8(t, pfd.FormatBinary)
	value := mustInt16(t, pfd.FormatBinary)
	s, err := pfd.NewVSFIntegerType(pfd.FormatBinary, scale, value)
	require.NoError(t, err)

	err = s.AddMapping("unknown", -999)
	require.Error(t, err)
}

func TestSpecialAddMappingWrapsValueExprOnTimeKind(t *testing.T) {
	t.Parallel()

	base, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, 32, nil)
	require.NoError(t, err)
	valueExpr, err := expr.Parse("0")
	require.NoError(t, err)
	s, err := pfd.NewTimeType(pfd.FormatAscii, base, valueExpr)
	require.NoError(t, err)

	require.NoError(t, s.AddMapping("unknown", -999))
	require.NotNil(t, s.ValueExpr)
}

func TestNewComplexTypeRequiresMatchingNumericFields(t *testing.T) {
	t.Parallel()

	realField := mustInt16(t, pfd.FormatBinary)
	textField, err := pfd.NewTextType(pfd.FormatAscii, pfd.TextString, 8, nil)
	require.NoError(t, err)

	_, err = pfd.NewComplexType(pfd.FormatBinary, realField, textField)
	require.Error(t, err, "non-numeric component")

	wider, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadInt32, 32, pfd.BigEndian)
	require.NoError(t, err)
	_, err = pfd.NewComplexType(pfd.FormatBinary, realField, wider)
	require.Error(t, err, "same class but different read type and width")

	flipped, err := pfd.NewIntegerType(pfd.FormatBinary, pfd.ReadInt16, 16, pfd.LittleEndian)
	require.NoError(t, err)
	_, err = pfd.NewComplexType(pfd.FormatBinary, realField, flipped)
	require.Error(t, err, "same read type but different endianness")
}

func TestNewComplexTypeComputesCombinedSize(t *testing.T) {
	t.Parallel()

	realField := mustInt16(t, pfd.FormatBinary)
	imagField := mustInt16(t, pfd.FormatBinary)

	s, err := pfd.NewComplexType(pfd.FormatBinary, realField, imagField)
	require.NoError(t, err)
	require.EqualValues(t, 32, s.FixedBitSize())
	require.Equal(t, pfd.SpecialComplex, s.Kind)
}
