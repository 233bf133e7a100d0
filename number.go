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

// ReadType identifies the native representation a leaf is stored as.
type ReadType int

const (
	ReadInvalid ReadType = iota
	ReadInt8
	ReadUint8
	ReadInt16
	ReadUint16
	ReadInt32
	ReadUint32
	ReadInt64
	ReadUint64
	ReadFloat32
	ReadFloat64
)

// nominalBits returns the natural bit width of rt, used to validate a
// possibly-narrower stored bit_size against it.
func (rt ReadType) nominalBits() int {
	switch rt {
	case ReadInt8, ReadUint8:
		return 8
	case ReadInt16, ReadUint16:
		return 16
	case ReadInt32, ReadUint32, ReadFloat32:
		return 32
	case ReadInt64, ReadUint64, ReadFloat64:
		return 64
	default:
		return 0
	}
}

func (rt ReadType) isFloat() bool { return rt == ReadFloat32 || rt == ReadFloat64 }

// Endianness selects byte order for a multi-byte binary number.
type Endianness int

const (
	BigEndian Endianness = iota
	LittleEndian
)

// Conversion implements the optional integer/real conversion: the raw
// value v becomes (v*Numerator/Denominator)+AddOffset unless v equals
// InvalidValue, in which case the conversion yields NaN. This holds for
// integer and real leaves alike: a cursor that performs conversions reads a
// converted integer as a float64 and refuses to read it as an integer.
type Conversion struct {
	Numerator    float64
	Denominator  float64
	AddOffset    float64
	HasInvalid   bool
	InvalidValue float64
	Unit         string // converted unit; "" if unchanged
}

// Apply runs the conversion on a raw numeric value.
func (c *Conversion) Apply(v float64) float64 {
	if c.HasInvalid && v == c.InvalidValue {
		return nan()
	}
	num := c.Numerator
	if num == 0 {
		num = 1
	}
	den := c.Denominator
	if den == 0 {
		den = 1
	}
	return v*num/den + c.AddOffset
}

func nan() float64 {
	var zero float64
	return zero / zero
}

// Mapping pairs an ASCII string representation with the numeric value it
// stands for.
type Mapping struct {
	Text  string
	Value int64
}

// IntegerType implements the Integer variant.
type IntegerType struct {
	base

	ReadType   ReadType
	Unit       string
	Endianness Endianness
	Conversion *Conversion
	Mappings   []Mapping
}

// NewIntegerType builds a binary or ASCII integer leaf of bitSize bits
// (bitSize <= 0 means "derive from ReadType's nominal width"), validating
// the binary numeric rules.
func NewIntegerType(format Format, rt ReadType, bitSize int64, endianness Endianness) (*IntegerType, error) {
	if rt.isFloat() {
		return nil, newError(InvalidArgument, "read type %v is not an integer type", rt)
	}
	nominal := int64(rt.nominalBits())
	if bitSize <= 0 {
		bitSize = nominal
	}
	if format == FormatBinary {
		if bitSize > nominal {
			return nil, newError(DataDefinition, "integer bit_size %d exceeds nominal width %d for read type %v", bitSize, nominal, rt)
		}
		if endianness == LittleEndian && bitSize%8 != 0 {
			return nil, newError(DataDefinition, "little-endian integers must be byte-aligned, got bit_size %d", bitSize)
		}
	}
	it := &IntegerType{base: newBase(format, ClassInteger), ReadType: rt, Endianness: endianness}
	it.bitSize = bitSize
	return it, nil
}

// AddMapping appends an ASCII string<->value mapping; once any
// mapping is present the type's bit size may vary per mapping, in which
// case FixedBitSize collapses to -1.
func (it *IntegerType) AddMapping(text string, value int64) {
	it.Mappings = append(it.Mappings, Mapping{Text: text, Value: value})
	if it.bitSize >= 0 && 8*int64(len(text)) != it.bitSize {
		it.bitSize = -1
	}
}

// RealType implements the Real variant.
type RealType struct {
	base

	ReadType   ReadType
	Unit       string
	Endianness Endianness
	Conversion *Conversion
	Mappings   []Mapping
}

// NewRealType builds a binary or ASCII floating-point leaf, validating
// the "float read type <-> exactly 32 bits; double <-> exactly 64
// bits" rule for binary formats.
func NewRealType(format Format, rt ReadType, endianness Endianness) (*RealType, error) {
	if !rt.isFloat() {
		return nil, newError(InvalidArgument, "read type %v is not a real type", rt)
	}
	rl := &RealType{base: newBase(format, ClassReal), ReadType: rt, Endianness: endianness}
	rl.bitSize = int64(rt.nominalBits())
	return rl, nil
}

func (rl *RealType) AddMapping(text string, value int64) {
	rl.Mappings = append(rl.Mappings, Mapping{Text: text, Value: value})
	if rl.bitSize >= 0 && 8*int64(len(text)) != rl.bitSize {
		rl.bitSize = -1
	}
}
