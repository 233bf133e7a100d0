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

// Format identifies the on-disk family a [Type] belongs to.
type Format int

const (
	FormatUnknown Format = iota
	FormatAscii
	FormatBinary
	FormatXML
	FormatCDF
	FormatNetCDF
	FormatHDF4
	FormatHDF5
	FormatGRIB
	FormatRINEX
	FormatSP3
)

func (f Format) String() string {
	switch f {
	case FormatAscii:
		return "ascii"
	case FormatBinary:
		return "binary"
	case FormatXML:
		return "xml"
	case FormatCDF:
		return "cdf"
	case FormatNetCDF:
		return "netcdf"
	case FormatHDF4:
		return "hdf4"
	case FormatHDF5:
		return "hdf5"
	case FormatGRIB:
		return "grib"
	case FormatRINEX:
		return "rinex"
	case FormatSP3:
		return "sp3"
	default:
		return "unknown"
	}
}

// TypeClass is the tag of the sum type described by exactly one
// concrete type (Record/Array/Integer/Real/Text/Raw/Special) implements
// each class.
type TypeClass int

const (
	ClassRecord TypeClass = iota
	ClassArray
	ClassInteger
	ClassReal
	ClassText
	ClassRaw
	ClassSpecial
)

func (c TypeClass) String() string {
	switch c {
	case ClassRecord:
		return "record"
	case ClassArray:
		return "array"
	case ClassInteger:
		return "integer"
	case ClassReal:
		return "real"
	case ClassText:
		return "text"
	case ClassRaw:
		return "raw"
	case ClassSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Type is the common interface every type variant implements: the generic
// operations every class shares.
// Class-specific operations (field lookup, array dimensions, numeric
// read-type) are methods of the concrete *RecordType/*ArrayType/etc. Go
// renders the source's tagged-union-plus-downcast pattern as one variant
// type per class rather than a shared header struct with a class tag.
type Type interface {
	Format() Format
	Class() TypeClass
	Name() string
	Description() string
	// FixedBitSize returns the type's fixed bit size, or -1 if it must be
	// computed dynamically (via SizeExpr or per-instance structure).
	FixedBitSize() int64
	SizeExpr() *expr.Node
	Attributes() *RecordType
}

// base holds the fields every [Type] variant shares (the common header:
// format, type_class, optional name, optional description, optional fixed
// bit_size, optional size_expr, optional attributes record).
type base struct {
	format      Format
	class       TypeClass
	name        string
	description string
	bitSize     int64 // -1 if computed
	sizeExpr    *expr.Node
	attributes  *RecordType
}

func newBase(format Format, class TypeClass) base {
	return base{format: format, class: class, bitSize: -1}
}

func (b *base) Format() Format             { return b.format }
func (b *base) Class() TypeClass           { return b.class }
func (b *base) Name() string               { return b.name }
func (b *base) Description() string        { return b.description }
func (b *base) FixedBitSize() int64        { return b.bitSize }
func (b *base) SizeExpr() *expr.Node       { return b.sizeExpr }
func (b *base) Attributes() *RecordType    { return b.attributes }
func (b *base) SetName(name string)        { b.name = name }
func (b *base) SetDescription(d string)    { b.description = d }
func (b *base) SetSizeExpr(n *expr.Node)   { b.sizeExpr = n }
func (b *base) SetAttributes(r *RecordType) { b.attributes = r }

// emptyRecordSingletons caches the per-format empty attributes record
// returned when a type has no attributes (the "empty-record singleton
// per format"). Guarded by emptyRecordMu: cursors traversing different
// products on different goroutines all reach this cache.
var (
	emptyRecordMu         sync.Mutex
	emptyRecordSingletons = map[Format]*RecordType{}
)

// EmptyAttributes returns the shared empty-record singleton for format f,
// creating it on first use.
func EmptyAttributes(f Format) *RecordType {
	emptyRecordMu.Lock()
	defer emptyRecordMu.Unlock()
	if r, ok := emptyRecordSingletons[f]; ok {
		return r
	}
	r := NewRecordType(f)
	r.SetName("")
	emptyRecordSingletons[f] = r
	return r
}
