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

package pfd

import (
	"sync"

	"github.com/pfdgo/pfd/internal/expr"
)

// SpecialKind identifies which of the four special interpretations a
// [SpecialType] wraps.
type SpecialKind int

const (
	SpecialNoData SpecialKind = iota
	SpecialVSFInteger
	SpecialTime
	SpecialComplex
)

func (k SpecialKind) String() string {
	switch k {
	case SpecialNoData:
		return "no_data"
	case SpecialVSFInteger:
		return "vsf_integer"
	case SpecialTime:
		return "time"
	case SpecialComplex:
		return "complex"
	default:
		return "unknown"
	}
}

// SpecialType implements the Special variant: a leaf whose logical
// interpretation differs from its raw storage. BaseType is the storage
// shape; cursor.go's use_base_type_of_special_type switches a frame's type
// to BaseType without popping.
type SpecialType struct {
	base

	Kind     SpecialKind
	BaseType Type

	// ValueExpr is set only for SpecialTime: it maps the base
	// representation to seconds since 2000-01-01T00:00:00.
	ValueExpr *expr.Node
}

// noDataSingletons is guarded by noDataMu: cursors traversing different
// products on different goroutines all reach this cache.
var (
	noDataMu         sync.Mutex
	noDataSingletons = map[Format]*SpecialType{}
)

// NoDataType returns the per-format no_data singleton, wrapping a
// zero-size raw type.
func NoDataType(format Format) *SpecialType {
	noDataMu.Lock()
	defer noDataMu.Unlock()
	if s, ok := noDataSingletons[format]; ok {
		return s
	}
	raw, _ := NewRawType(format, 0, nil)
	s := &SpecialType{base: newBase(format, ClassSpecial), Kind: SpecialNoData, BaseType: raw}
	s.bitSize = 0
	noDataSingletons[format] = s
	return s
}

// NewVSFIntegerType wraps a 2-field {scale_factor, value} record: the
// scale_factor must be a signed-or-unsigned integer of at most 32 bits
// (wider scales would lose precision applying 10^scale).
func NewVSFIntegerType(format Format, scaleFactor, value *IntegerType) (*SpecialType, error) {
	if scaleFactor == nil || value == nil {
		return nil, newError(InvalidArgument, "vsf_integer requires both scale_factor and value fields")
	}
	if scaleFactor.ReadType.nominalBits() > 32 {
		return nil, newError(DataDefinition, "vsf_integer scale_factor must be at most 32 bits, got read type %v", scaleFactor.ReadType)
	}
	rec := NewRecordType(format)
	if err := rec.AddField(Field{Name: "scale_factor", BitOffset: -1, Type: scaleFactor}); err != nil {
		return nil, err
	}
	if err := rec.AddField(Field{Name: "value", BitOffset: -1, Type: value}); err != nil {
		return nil, err
	}
	s := &SpecialType{base: newBase(format, ClassSpecial), Kind: SpecialVSFInteger, BaseType: rec}
	s.bitSize = rec.FixedBitSize()
	return s, nil
}

// NewTimeType wraps baseType (text, or a record of integers) with valueExpr
// computing seconds since 2000-01-01T00:00:00 from it.
func NewTimeType(format Format, baseType Type, valueExpr *expr.Node) (*SpecialType, error) {
	if baseType == nil {
		return nil, newError(InvalidArgument, "time type requires a base type")
	}
	if baseType.Class() != ClassText && baseType.Class() != ClassRecord {
		return nil, newError(DataDefinition, "time base type must be text or a record of integers, got %v", baseType.Class())
	}
	if valueExpr == nil {
		return nil, newError(InvalidArgument, "time type requires a value_expr")
	}
	s := &SpecialType{base: newBase(format, ClassSpecial), Kind: SpecialTime, BaseType: baseType, ValueExpr: valueExpr}
	s.bitSize = baseType.FixedBitSize()
	return s, nil
}

// AddMapping compiles one more special-string override into ValueExpr, per
// "extra mapping entries are compiled into the value expression as
// nested if(str(.,len)==m, value, prev_expr)". text is matched against the
// base text read at the current cursor position; seconds is the literal
// value substituted when it matches.
func (s *SpecialType) AddMapping(text string, seconds float64) error {
	if s.Kind != SpecialTime {
		return newError(InvalidType, "AddMapping is only valid on a time special type")
	}
	cond := expr.New(expr.TagEqual, expr.ResultBoolean,
		expr.New(expr.TagString, expr.ResultString, expr.New(expr.TagGotoHere, expr.ResultNode), expr.NewConstantInteger(int64(len(text)))),
		expr.NewConstantString(text),
	)
	s.ValueExpr = expr.New(expr.TagIf, expr.ResultFloat, cond, expr.NewConstantFloat(seconds), s.ValueExpr)
	return nil
}

// NewComplexType wraps a record of two identical numeric fields
// {real, imaginary}.
func NewComplexType(format Format, real, imaginary Type) (*SpecialType, error) {
	if real == nil || imaginary == nil {
		return nil, newError(InvalidArgument, "complex type requires both real and imaginary fields")
	}
	if !sameNumericType(real, imaginary) {
		return nil, newError(DataDefinition, "complex fields must be two identical numeric types")
	}
	rec := NewRecordType(format)
	if err := rec.AddField(Field{Name: "real", BitOffset: -1, Type: real}); err != nil {
		return nil, err
	}
	if err := rec.AddField(Field{Name: "imaginary", BitOffset: -1, Type: imaginary}); err != nil {
		return nil, err
	}
	s := &SpecialType{base: newBase(format, ClassSpecial), Kind: SpecialComplex, BaseType: rec}
	s.bitSize = rec.FixedBitSize()
	return s, nil
}

// sameNumericType reports whether a and b are the same numeric leaf type:
// same class, format, read type, bit size and endianness. A mere class
// match is not enough for a complex pair; the two components must have
// identical storage.
func sameNumericType(a, b Type) bool {
	switch at := a.(type) {
	case *IntegerType:
		bt, ok := b.(*IntegerType)
		return ok && at.Format() == bt.Format() && at.ReadType == bt.ReadType &&
			at.FixedBitSize() == bt.FixedBitSize() && at.Endianness == bt.Endianness
	case *RealType:
		bt, ok := b.(*RealType)
		return ok && at.Format() == bt.Format() && at.ReadType == bt.ReadType &&
			at.FixedBitSize() == bt.FixedBitSize() && at.Endianness == bt.Endianness
	default:
		return false
	}
}
