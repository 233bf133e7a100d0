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

// Field is one member of a [RecordType]: the "ordered sequence of
// fields, each carrying name, optional real_name, hidden flag, optional
// flag, optional available_expr, and a bit_offset XOR bit_offset_expr".
type Field struct {
	Name     string
	RealName string // on-disk label, if different from Name; "" if same
	Hidden   bool
	Optional bool

	AvailableExpr *expr.Node // boolean; nil if always available

	// BitOffset is the fixed offset relative to the record's start, or -1
	// if unresolved (use BitOffsetExpr, or fall back to rel_bit_offset's
	// predecessor walk when neither is set).
	BitOffset     int64
	BitOffsetExpr *expr.Node

	Type Type
}

// RecordType implements the Record variant, including the union
// extension: at most one field present at a time, selected by
// UnionFieldExpr.
type RecordType struct {
	base

	fields        []Field
	nameIndex     map[string]int
	realNameIndex map[string]int

	isUnion        bool
	unionFieldExpr *expr.Node
}

// NewRecordType builds an empty record of the given format. Fields are
// added with [RecordType.AddField].
func NewRecordType(format Format) *RecordType {
	return &RecordType{
		base:          newBase(format, ClassRecord),
		nameIndex:     make(map[string]int),
		realNameIndex: make(map[string]int),
	}
}

// NewUnionRecordType builds an empty union record whose active field is
// selected by evaluating selector (integer-valued) against the record's
// cursor position.
func NewUnionRecordType(format Format, selector *expr.Node) *RecordType {
	r := NewRecordType(format)
	r.isUnion = true
	r.unionFieldExpr = selector
	return r
}

func (r *RecordType) IsUnion() bool                { return r.isUnion }
func (r *RecordType) UnionFieldExpr() *expr.Node    { return r.unionFieldExpr }
func (r *RecordType) NumFields() int                { return len(r.fields) }
func (r *RecordType) FieldAt(i int) (Field, error) {
	if i < 0 || i >= len(r.fields) {
		return Field{}, newError(InvalidIndex, "record field index %d out of range [0,%d)", i, len(r.fields))
	}
	return r.fields[i], nil
}

// FieldIndexByName resolves a field by its programmatic name in O(1).
func (r *RecordType) FieldIndexByName(name string) (int, error) {
	if i, ok := r.nameIndex[name]; ok {
		return i, nil
	}
	return 0, newError(InvalidName, "record has no field named %q", name)
}

// FieldIndexByRealName resolves a field by its on-disk label in O(1).
func (r *RecordType) FieldIndexByRealName(name string) (int, error) {
	if i, ok := r.realNameIndex[name]; ok {
		return i, nil
	}
	if i, ok := r.nameIndex[name]; ok {
		return i, nil
	}
	return 0, newError(InvalidName, "record has no field with real name %q", name)
}

func formatCompatible(recordFormat, fieldFormat Format) bool {
	if fieldFormat == recordFormat {
		return true
	}
	// ASCII fields may be inserted into binary or XML records.
	return fieldFormat == FormatAscii && (recordFormat == FormatBinary || recordFormat == FormatXML)
}

// AddField appends f, enforcing the construction-time invariants:
// format compatibility, union fields must be optional, bit-offset
// propagation from a resolved, fixed-size, non-optional predecessor, and
// recomputation of the record's own fixed bit size.
func (r *RecordType) AddField(f Field) error {
	if f.Type == nil {
		return newError(InvalidArgument, "field %q has no type", f.Name)
	}
	if !formatCompatible(r.format, f.Type.Format()) {
		return newError(DataDefinition, "field %q format %v incompatible with record format %v", f.Name, f.Type.Format(), r.format)
	}
	if r.isUnion && !f.Optional {
		return newError(DataDefinition, "union field %q must be optional", f.Name)
	}
	if _, exists := r.nameIndex[f.Name]; exists {
		return newError(DataDefinition, "duplicate field name %q", f.Name)
	}

	if f.BitOffset < 0 && f.BitOffsetExpr == nil && len(r.fields) > 0 {
		prev := r.fields[len(r.fields)-1]
		if prev.BitOffset >= 0 && prev.Type.FixedBitSize() >= 0 && !prev.Optional {
			f.BitOffset = prev.BitOffset + prev.Type.FixedBitSize()
		}
		// else: left unresolved (BitOffset stays -1), resolved later by
		// rel_bit_offset's predecessor walk (cursor.go).
	}
	if f.BitOffset < 0 && f.BitOffsetExpr == nil && len(r.fields) == 0 {
		f.BitOffset = 0
	}

	idx := len(r.fields)
	r.fields = append(r.fields, f)
	r.nameIndex[f.Name] = idx
	if f.RealName != "" {
		r.realNameIndex[f.RealName] = idx
	}
	r.recomputeFixedSize()
	return nil
}

// recomputeFixedSize implements the "record bit size stays fixed iff
// all current fields have fixed sizes and none are optional"; a union's
// bit size is the fixed size all its fields share, and -1 when they
// differ or none is fixed.
func (r *RecordType) recomputeFixedSize() {
	if len(r.fields) == 0 {
		r.bitSize = 0
		return
	}
	if r.isUnion {
		common := r.fields[0].Type.FixedBitSize()
		for _, f := range r.fields[1:] {
			if f.Type.FixedBitSize() != common {
				r.bitSize = -1
				return
			}
		}
		r.bitSize = common
		return
	}
	var total int64
	for _, f := range r.fields {
		if f.Optional || f.Type.FixedBitSize() < 0 {
			r.bitSize = -1
			return
		}
		total += f.Type.FixedBitSize()
	}
	r.bitSize = total
}
