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

import "github.com/pfdgo/pfd/internal/expr"

// Dimension is one axis of an [ArrayType]: either a fixed length or an
// expression evaluated against the array's cursor position.
type Dimension struct {
	Fixed int64      // >= 0 when fixed; ignored when Expr != nil
	Expr  *expr.Node // nil when Fixed is used
}

// ArrayType implements the Array variant.
type ArrayType struct {
	base

	elementType Type
	dims        []Dimension
	numElements int64 // product of fixed dims, or -1 if any dim is an expr
}

// NewArrayType builds an array of elem, validating the element-type
// format compatibility and its "no arrays of arrays when format = xml"
// rule. Dimensions are added afterward with [ArrayType.AddDimension] /
// [ArrayType.AddDimensionExpr].
func NewArrayType(format Format, elem Type) (*ArrayType, error) {
	if elem == nil {
		return nil, newError(InvalidArgument, "array element type is nil")
	}
	if !formatCompatible(format, elem.Format()) {
		return nil, newError(DataDefinition, "array element format %v incompatible with array format %v", elem.Format(), format)
	}
	if format == FormatXML && elem.Class() == ClassArray {
		return nil, newError(DataDefinition, "arrays of arrays are not allowed for xml format")
	}
	a := &ArrayType{base: newBase(format, ClassArray), elementType: elem, numElements: 1}
	return a, nil
}

func (a *ArrayType) ElementType() Type { return a.elementType }
func (a *ArrayType) NumDims() int      { return len(a.dims) }

// NumElements returns the product of all dims when every dim is fixed, or
// -1 if any dim is an expression.
func (a *ArrayType) NumElements() int64 { return a.numElements }

func (a *ArrayType) Dim(i int) (Dimension, error) {
	if i < 0 || i >= len(a.dims) {
		return Dimension{}, newError(InvalidIndex, "array dimension index %d out of range [0,%d)", i, len(a.dims))
	}
	return a.dims[i], nil
}

// AddDimension appends a fixed-length dimension and recomputes the
// element-size-derived fixed bit size.
func (a *ArrayType) AddDimension(length int64) error {
	if length < 0 {
		return newError(InvalidArgument, "array dimension length %d is negative", length)
	}
	a.dims = append(a.dims, Dimension{Fixed: length})
	a.recompute()
	return nil
}

// AddDimensionExpr appends an expression-valued dimension; "if any
// dim is an expression, num_elements = -1".
func (a *ArrayType) AddDimensionExpr(e *expr.Node) error {
	if e == nil {
		return newError(InvalidArgument, "array dimension expression is nil")
	}
	a.dims = append(a.dims, Dimension{Expr: e})
	a.numElements = -1
	a.recompute()
	return nil
}

func (a *ArrayType) recompute() {
	if len(a.dims) == 0 {
		a.bitSize = -1
		return
	}
	n := int64(1)
	for _, d := range a.dims {
		if d.Expr != nil {
			a.numElements = -1
			a.bitSize = -1
			return
		}
		n *= d.Fixed
	}
	a.numElements = n
	if elemSize := a.elementType.FixedBitSize(); elemSize >= 0 {
		a.bitSize = n * elemSize
	} else {
		a.bitSize = -1
	}
}
