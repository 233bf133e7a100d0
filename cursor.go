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
	"github.com/pfdgo/pfd/internal/bitio"
	"github.com/pfdgo/pfd/internal/expr"
)

// CursorMaxDepth bounds the cursor's frame stack.
const CursorMaxDepth = 32

// Frame is one level of a [Cursor]'s stack.
type Frame struct {
	Type Type
	// Index is the field index (records), array element index, or -1 to
	// denote "the attributes of the parent" or "the product root".
	Index int64
	// BitOffset is the absolute bit offset into the product for
	// ASCII/binary frames; -1 for self-describing backend frames and
	// attribute frames.
	BitOffset int64
}

// Cursor is a bounded stack of frames plus a reference to the product it
// navigates. It is a value type: copying a Cursor (via [Cursor.Clone]
// or plain assignment) produces an independent cursor, matching the
// single-owner, no-shared-mutable-state concurrency model.
type Cursor struct {
	product *Product
	stack   [CursorMaxDepth]Frame
	depth   int
}

// NewCursor returns a depth-1 cursor at p's root type, index -1, bit
// offset 0.
func NewCursor(p *Product) (*Cursor, error) {
	if p == nil {
		return nil, newError(InvalidArgument, "product is nil")
	}
	if p.RootType == nil {
		return nil, newError(InvalidArgument, "product has no root type bound")
	}
	c := &Cursor{product: p}
	c.stack[0] = Frame{Type: p.RootType, Index: -1, BitOffset: 0}
	c.depth = 1
	return c, nil
}

// newDetectionCursor builds a cursor over p using root as the frame-0 type
// instead of p.RootType, for detection-tree evaluation before a definition
// (and therefore a root type) has been bound to p.
func newDetectionCursor(p *Product, root Type) *Cursor {
	c := &Cursor{product: p}
	c.stack[0] = Frame{Type: root, Index: -1, BitOffset: 0}
	c.depth = 1
	return c
}

// clone returns an independent copy of c for use by code within this
// package that needs the concrete *Cursor type back (the goto/goto_parent
// round-trip relies on this being a plain value copy).
func (c *Cursor) clone() *Cursor {
	cp := *c
	return &cp
}

// Clone implements expr.Target: an independent copy of c as a Target.
// Package-internal callers that need a *Cursor back should call clone
// instead and avoid the type assertion.
func (c *Cursor) Clone() expr.Target { return c.clone() }

var _ expr.Target = (*Cursor)(nil)

func (c *Cursor) current() *Frame { return &c.stack[c.depth-1] }

// Depth returns the number of frames on the stack (get_depth).
func (c *Cursor) Depth() int { return c.depth }

func (c *Cursor) push(f Frame) error {
	if c.depth >= CursorMaxDepth {
		return newError(InvalidArgument, "cursor depth would exceed max depth %d", CursorMaxDepth)
	}
	c.stack[c.depth] = f
	c.depth++
	return nil
}

func (c *Cursor) data() []byte {
	if c.product.file != nil {
		return c.product.file.data
	}
	return nil
}

// --- navigation ---

// GotoRoot truncates the stack to depth 1.
func (c *Cursor) GotoRoot() error {
	c.depth = 1
	return nil
}

// GotoParent pops one frame; error if already at root.
func (c *Cursor) GotoParent() error {
	if c.depth <= 1 {
		return newError(NoParent, "goto_parent called at cursor root")
	}
	c.depth--
	return nil
}

// GotoHere is a no-op navigation (used as a path's leading '.').
func (c *Cursor) GotoHere() error { return nil }

// GotoBegin descends to the first child of the current frame: its first
// record field if it is a record, or its first array element if it is an
// array.
func (c *Cursor) GotoBegin() error {
	switch c.current().Type.(type) {
	case *RecordType:
		return c.GotoFirstRecordField()
	case *ArrayType:
		return c.GotoFirstArrayElement()
	default:
		return newError(InvalidType, "goto_begin is not valid on a %v", c.current().Type.Class())
	}
}

// Goto interprets path (the path subset of the expression
// grammar: '/', '[i]', '@name', field names, '.', '..') and applies the
// corresponding goto_* sequence.
func (c *Cursor) Goto(path string) error {
	node, err := expr.ParsePath(path)
	if err != nil {
		return newError(InvalidArgument, "invalid path %q: %v", path, err)
	}
	saved := *c
	if _, err := expr.Eval(node, c); err != nil {
		*c = saved
		return err
	}
	return nil
}

// backendFrame reports whether the current frame belongs to a
// self-describing backend rather than being computed by this cursor
// engine directly.
func (c *Cursor) backendFrame() bool {
	f := c.current().Type.Format()
	return f != FormatAscii && f != FormatBinary
}

// GotoFirstRecordField descends into field 0 of the current record.
func (c *Cursor) GotoFirstRecordField() error {
	return c.GotoRecordFieldByIndex(0)
}

// GotoRecordFieldByIndex descends into field i of the current record.
func (c *Cursor) GotoRecordFieldByIndex(i int) error {
	parent := c.current()
	if c.backendFrame() {
		newType, err := c.product.Backend.GotoRecordFieldByIndex(parent.Type, i)
		if err != nil {
			return err
		}
		return c.push(Frame{Type: newType, Index: int64(i), BitOffset: -1})
	}
	rec, ok := parent.Type.(*RecordType)
	if !ok {
		return newError(InvalidType, "goto_record_field_by_index on a non-record %v", parent.Type.Class())
	}
	field, err := rec.FieldAt(i)
	if err != nil {
		return err
	}
	offset, err := relBitOffset(c, rec, i)
	if err != nil {
		return err
	}
	return c.push(Frame{Type: field.Type, Index: int64(i), BitOffset: parent.BitOffset + offset})
}

// GotoRecordFieldByName resolves name to an index and descends into it.
func (c *Cursor) GotoRecordFieldByName(name string) error {
	rec, ok := c.current().Type.(*RecordType)
	if !ok {
		return newError(InvalidType, "goto_record_field_by_name on a non-record %v", c.current().Type.Class())
	}
	idx, err := rec.FieldIndexByRealName(name)
	if err != nil {
		return err
	}
	return c.GotoRecordFieldByIndex(idx)
}

// GotoNextRecordField moves from field i to field i+1 within the parent
// record, using the O(1) rel_bit_offset_next shortcut when available.
func (c *Cursor) GotoNextRecordField() error {
	if c.depth < 2 {
		return newError(InvalidType, "goto_next_record_field has no parent frame")
	}
	child := c.current()
	parentFrame := &c.stack[c.depth-2]
	if c.backendFrame() {
		newType, err := c.product.Backend.GotoNextRecordField(parentFrame.Type, int(child.Index))
		if err != nil {
			return err
		}
		c.stack[c.depth-1] = Frame{Type: newType, Index: child.Index + 1, BitOffset: -1}
		return nil
	}
	rec, ok := parentFrame.Type.(*RecordType)
	if !ok {
		return newError(InvalidType, "goto_next_record_field on a non-record parent")
	}
	i := int(child.Index)
	if i+1 >= rec.NumFields() {
		return newError(InvalidIndex, "record field index %d out of range [0,%d)", i+1, rec.NumFields())
	}
	nextOffset, _, err := relBitOffsetNext(c, rec, i, child.BitOffset-parentFrame.BitOffset)
	if err != nil {
		return err
	}
	field, _ := rec.FieldAt(i + 1)
	c.stack[c.depth-1] = Frame{Type: field.Type, Index: int64(i + 1), BitOffset: parentFrame.BitOffset + nextOffset}
	return nil
}

// GotoAvailableUnionField evaluates the current union's selector expression
// against the enclosing record's scope (the selector's sibling fields live
// there) and descends into the selected field, which starts
// at the same bit offset as the union itself.
func (c *Cursor) GotoAvailableUnionField() error {
	parent := c.current()
	if c.backendFrame() {
		newType, idx, err := c.product.Backend.GotoAvailableUnionField(parent.Type)
		if err != nil {
			return err
		}
		return c.push(Frame{Type: newType, Index: int64(idx), BitOffset: -1})
	}
	rec, ok := parent.Type.(*RecordType)
	if !ok || !rec.IsUnion() {
		return newError(InvalidType, "goto_available_union_field on a non-union %v", parent.Type.Class())
	}
	idx, err := c.availableUnionFieldIndex(rec)
	if err != nil {
		return err
	}
	field, err := rec.FieldAt(idx)
	if err != nil {
		return err
	}
	return c.push(Frame{Type: field.Type, Index: int64(idx), BitOffset: parent.BitOffset})
}

func (c *Cursor) availableUnionFieldIndex(rec *RecordType) (int, error) {
	probe := c.clone()
	if probe.depth > 1 {
		if err := probe.GotoParent(); err != nil {
			return 0, err
		}
	}
	v, err := expr.Eval(rec.UnionFieldExpr(), probe)
	if err != nil {
		return 0, addPath(err, "evaluating union_field_expr")
	}
	idx, err := v.AsInt()
	if err != nil {
		return 0, err
	}
	if idx < 0 || int(idx) >= rec.NumFields() {
		return 0, productError(c.current().BitOffset, "union_field_expr selected out-of-range field index %d", idx)
	}
	return int(idx), nil
}

// GetAvailableUnionFieldIndex reports which field the current union would
// select, without moving the cursor.
func (c *Cursor) GetAvailableUnionFieldIndex() (int, error) {
	if c.backendFrame() {
		return c.product.Backend.GetAvailableUnionFieldIndex(c.current().Type)
	}
	rec, ok := c.current().Type.(*RecordType)
	if !ok || !rec.IsUnion() {
		return 0, newError(InvalidType, "get_available_union_field_index on a non-union %v", c.current().Type.Class())
	}
	return c.availableUnionFieldIndex(rec)
}

// GotoFirstArrayElement descends into element 0.
func (c *Cursor) GotoFirstArrayElement() error {
	return c.GotoArrayElementByIndex(0)
}

// GotoArrayElementByIndex descends into element i (row-major linear index).
func (c *Cursor) GotoArrayElementByIndex(i int64) error {
	parent := c.current()
	if c.backendFrame() {
		newType, err := c.product.Backend.GotoArrayElementByIndex(parent.Type, i)
		if err != nil {
			return err
		}
		return c.push(Frame{Type: newType, Index: i, BitOffset: -1})
	}
	arr, ok := parent.Type.(*ArrayType)
	if !ok {
		return newError(InvalidType, "goto_array_element_by_index on a non-array %v", parent.Type.Class())
	}
	if i < 0 {
		return newError(ArrayOutOfBounds, "array index %d is negative", i)
	}
	if c.product.options.PerformBoundaryChecks {
		n, err := c.arrayNumElements(arr)
		if err != nil {
			return err
		}
		if i >= n {
			return newError(ArrayOutOfBounds, "array index %d out of range [0,%d)", i, n)
		}
	}

	elem := arr.ElementType()
	if elemSize := elem.FixedBitSize(); elemSize >= 0 {
		return c.push(Frame{Type: elem, Index: i, BitOffset: parent.BitOffset + i*elemSize})
	}
	// Variable-size element: walk earlier elements summing get_bit_size.
	offset := int64(0)
	walker := &Cursor{product: c.product}
	walker.stack[0] = Frame{Type: elem, Index: 0, BitOffset: parent.BitOffset}
	walker.depth = 1
	for k := int64(0); k < i; k++ {
		size, err := walker.GetBitSize()
		if err != nil {
			return err
		}
		offset += size
		walker.stack[0] = Frame{Type: elem, Index: k + 1, BitOffset: parent.BitOffset + offset}
	}
	return c.push(Frame{Type: elem, Index: i, BitOffset: parent.BitOffset + offset})
}

// GotoArrayElement implements expr.Target: descends into element index
// (row-major linear index).
func (c *Cursor) GotoArrayElement(index int64) error {
	return c.GotoArrayElementByIndex(index)
}

// GotoArrayElementSubs descends using multi-dimensional subscripts
// (row-major).
func (c *Cursor) GotoArrayElementSubs(subs []int64) error {
	if c.backendFrame() {
		dims, err := c.product.Backend.GetArrayDim(c.current().Type)
		if err != nil {
			return err
		}
		if len(subs) != len(dims) {
			return newError(ArrayNumDimsMismatch, "expected %d subscripts, got %d", len(dims), len(subs))
		}
		linear := int64(0)
		for d := range dims {
			linear = linear*dims[d] + subs[d]
		}
		newType, err := c.product.Backend.GotoArrayElement(c.current().Type, subs)
		if err != nil {
			return err
		}
		return c.push(Frame{Type: newType, Index: linear, BitOffset: -1})
	}
	arr, ok := c.current().Type.(*ArrayType)
	if !ok {
		return newError(InvalidType, "goto_array_element on a non-array %v", c.current().Type.Class())
	}
	if len(subs) != arr.NumDims() {
		return newError(ArrayNumDimsMismatch, "expected %d subscripts, got %d", arr.NumDims(), len(subs))
	}
	linear := int64(0)
	for d := 0; d < arr.NumDims(); d++ {
		dim, err := c.arrayDim(arr, d)
		if err != nil {
			return err
		}
		if subs[d] < 0 || subs[d] >= dim {
			return newError(ArrayOutOfBounds, "subscript %d out of range [0,%d) at dim %d", subs[d], dim, d)
		}
		linear = linear*dim + subs[d]
	}
	return c.GotoArrayElementByIndex(linear)
}

// GotoNextArrayElement moves from element i to element i+1.
func (c *Cursor) GotoNextArrayElement() error {
	if c.depth < 2 {
		return newError(InvalidType, "goto_next_array_element has no parent frame")
	}
	child := *c.current()
	c.depth--
	err := c.GotoArrayElementByIndex(child.Index + 1)
	if err != nil {
		c.push(child)
	}
	return err
}

// GotoAttributes pushes a virtual frame for the current node's attributes.
func (c *Cursor) GotoAttributes() error {
	if c.backendFrame() {
		newType, err := c.product.Backend.GotoAttributes(c.current().Type)
		if err != nil {
			return err
		}
		return c.push(Frame{Type: newType, Index: -1, BitOffset: -1})
	}
	attrs := c.current().Type.Attributes()
	if attrs == nil {
		attrs = EmptyAttributes(c.current().Type.Format())
	}
	return c.push(Frame{Type: attrs, Index: -1, BitOffset: -1})
}

// HasAttributes reports whether the current node declares a non-empty
// attributes record.
func (c *Cursor) HasAttributes() bool {
	a := c.current().Type.Attributes()
	return a != nil && a.NumFields() > 0
}

// UseBaseTypeOfSpecialType replaces the current frame's type with the base
// type of a special type, recursing if BypassSpecialTypes is set.
func (c *Cursor) UseBaseTypeOfSpecialType() error {
	if c.backendFrame() {
		newType, err := c.product.Backend.UseBaseTypeOfSpecialType(c.current().Type)
		if err != nil {
			return err
		}
		c.current().Type = newType
		return nil
	}
	special, ok := c.current().Type.(*SpecialType)
	if !ok {
		return newError(InvalidType, "use_base_type_of_special_type on a non-special %v", c.current().Type.Class())
	}
	c.current().Type = special.BaseType
	if c.product.options.BypassSpecialTypes {
		if _, ok := c.current().Type.(*SpecialType); ok {
			return c.UseBaseTypeOfSpecialType()
		}
	}
	return nil
}

// --- reflection ---

func (c *Cursor) GotoField(name string) error { return c.GotoRecordFieldByName(name) }

// GotoAttribute descends into the single named attribute field.
func (c *Cursor) GotoAttribute(name string) error {
	if err := c.GotoAttributes(); err != nil {
		return err
	}
	if err := c.GotoRecordFieldByName(name); err != nil {
		c.GotoParent()
		return err
	}
	return nil
}

func (c *Cursor) GetIndex() int64 { return c.current().Index }
func (c *Cursor) Index() int64    { return c.GetIndex() }

func (c *Cursor) GetType() Type { return c.current().Type }

func (c *Cursor) GetFileBitOffset() (int64, error) {
	off := c.current().BitOffset
	if off < 0 {
		return 0, newError(InvalidType, "no bit offset for this frame")
	}
	return off, nil
}

func (c *Cursor) BitOffset() (int64, error) { return c.GetFileBitOffset() }

func (c *Cursor) GetByteOffset() (int64, error) {
	off, err := c.GetFileBitOffset()
	if err != nil {
		return 0, err
	}
	return off / 8, nil
}

func (c *Cursor) ByteOffset() (int64, error) { return c.GetByteOffset() }

func (c *Cursor) FileSize() int64    { return c.product.FileSize }
func (c *Cursor) Filename() string   { return c.product.Path }
func (c *Cursor) ProductClass() string {
	if c.product.Definition == nil {
		return ""
	}
	return c.product.ClassName
}
func (c *Cursor) ProductType() string {
	if c.product.Definition == nil {
		return ""
	}
	return c.product.Definition.Name
}
func (c *Cursor) ProductVersion() int64 {
	if c.product.Definition == nil {
		return -1
	}
	return int64(c.product.Definition.Version)
}
func (c *Cursor) ProductFormat() string { return c.product.Format.String() }

func (c *Cursor) HasAsciiContent() bool { return c.current().Type.Format() == FormatAscii }

// GetNumElements returns the current array's element count.
func (c *Cursor) GetNumElements() (int64, error) {
	if c.backendFrame() {
		return c.product.Backend.GetNumElements(c.current().Type)
	}
	arr, ok := c.current().Type.(*ArrayType)
	if !ok {
		return 0, newError(InvalidType, "num_elements on a non-array %v", c.current().Type.Class())
	}
	return c.arrayNumElements(arr)
}

func (c *Cursor) NumElements() (int64, error) { return c.GetNumElements() }

func (c *Cursor) GetArrayDim() ([]int64, error) {
	if c.backendFrame() {
		return c.product.Backend.GetArrayDim(c.current().Type)
	}
	arr, ok := c.current().Type.(*ArrayType)
	if !ok {
		return nil, newError(InvalidType, "get_array_dim on a non-array %v", c.current().Type.Class())
	}
	dims := make([]int64, arr.NumDims())
	for i := range dims {
		d, err := c.arrayDim(arr, i)
		if err != nil {
			return nil, err
		}
		dims[i] = d
	}
	return dims, nil
}

func (c *Cursor) NumDims() (int64, error) {
	arr, ok := c.current().Type.(*ArrayType)
	if !ok {
		return 0, newError(InvalidType, "num_dims on a non-array %v", c.current().Type.Class())
	}
	return int64(arr.NumDims()), nil
}

func (c *Cursor) Dim(i int64) (int64, error) {
	arr, ok := c.current().Type.(*ArrayType)
	if !ok {
		return 0, newError(InvalidType, "dim on a non-array %v", c.current().Type.Class())
	}
	return c.arrayDim(arr, int(i))
}

func (c *Cursor) arrayDim(arr *ArrayType, i int) (int64, error) {
	d, err := arr.Dim(i)
	if err != nil {
		return 0, err
	}
	if d.Expr == nil {
		return d.Fixed, nil
	}
	v, err := expr.Eval(d.Expr, c)
	if err != nil {
		return 0, addPath(err, "evaluating dim[%d] expression", i)
	}
	n, err := v.AsInt()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, productError(c.current().BitOffset, "array dimension %d evaluated to negative size %d", i, n)
	}
	return n, nil
}

func (c *Cursor) arrayNumElements(arr *ArrayType) (int64, error) {
	if n := arr.NumElements(); n >= 0 {
		return n, nil
	}
	n := int64(1)
	for i := 0; i < arr.NumDims(); i++ {
		d, err := c.arrayDim(arr, i)
		if err != nil {
			return 0, err
		}
		n *= d
	}
	return n, nil
}

func (c *Cursor) GetRecordFieldAvailableStatus(i int) (bool, error) {
	if c.backendFrame() {
		return c.product.Backend.GetRecordFieldAvailableStatus(c.current().Type, i)
	}
	rec, ok := c.current().Type.(*RecordType)
	if !ok {
		return false, newError(InvalidType, "get_record_field_available_status on a non-record %v", c.current().Type.Class())
	}
	field, err := rec.FieldAt(i)
	if err != nil {
		return false, err
	}
	if rec.IsUnion() {
		idx, err := c.availableUnionFieldIndex(rec)
		if err != nil {
			return false, err
		}
		return i == idx, nil
	}
	if field.AvailableExpr == nil {
		return true, nil
	}
	v, err := expr.Eval(field.AvailableExpr, c)
	if err != nil {
		return false, addPath(err, "evaluating available_expr for field %q", field.Name)
	}
	return v.AsBool()
}

func (c *Cursor) GetStringLength() (int64, error) {
	if c.backendFrame() {
		return c.product.Backend.GetStringLength(c.current().Type)
	}
	size, err := c.GetBitSize()
	if err != nil {
		return 0, err
	}
	return size / 8, nil
}

// GetBitSize returns the current node's bit size, computing record and
// array sizes on demand.
func (c *Cursor) GetBitSize() (int64, error) {
	t := c.current().Type
	if t.FixedBitSize() >= 0 {
		return t.FixedBitSize(), nil
	}
	if c.backendFrame() {
		return c.product.Backend.GetBitSize(t)
	}
	switch tt := t.(type) {
	case *RecordType:
		return c.recordBitSize(tt)
	case *ArrayType:
		return c.arrayBitSize(tt)
	default:
		if t.Format() == FormatAscii {
			var mappings []Mapping
			switch tt := t.(type) {
			case *IntegerType:
				mappings = tt.Mappings
			case *RealType:
				mappings = tt.Mappings
			}
			if m := c.matchedMapping(mappings); m != nil {
				return 8 * int64(len(m.Text)), nil
			}
		}
		if t.SizeExpr() == nil {
			return 0, newError(DataDefinition, "type has neither a fixed bit_size nor a size_expr")
		}
		v, err := expr.Eval(t.SizeExpr(), c)
		if err != nil {
			return 0, addPath(err, "evaluating size_expr")
		}
		n, err := v.AsInt()
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, productError(c.current().BitOffset, "size_expr evaluated to negative size %d", n)
		}
		return n, nil
	}
}

func (c *Cursor) BitSize() (int64, error) { return c.GetBitSize() }

func (c *Cursor) GetByteSize() (int64, error) {
	bits, err := c.GetBitSize()
	if err != nil {
		return 0, err
	}
	return (bits + 7) / 8, nil
}

func (c *Cursor) ByteSize() (int64, error) { return c.GetByteSize() }

// recordBitSize computes a record's dynamic bit size: the record's
// size_expr when the fast-size option allows, the selected field's size
// for unions, and a field-by-field walk otherwise.
func (c *Cursor) recordBitSize(rec *RecordType) (int64, error) {
	if rec.SizeExpr() != nil && c.product.options.UseFastSizeExpressions {
		v, err := expr.Eval(rec.SizeExpr(), c)
		if err != nil {
			return 0, addPath(err, "evaluating record size_expr")
		}
		n, err := v.AsInt()
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, productError(c.current().BitOffset, "record size_expr evaluated to negative size %d", n)
		}
		return n, nil
	}
	if rec.IsUnion() {
		idx, err := c.availableUnionFieldIndex(rec)
		if err != nil {
			return 0, err
		}
		field, _ := rec.FieldAt(idx)
		probe := c.clone()
		if err := probe.push(Frame{Type: field.Type, Index: int64(idx), BitOffset: c.current().BitOffset}); err != nil {
			return 0, err
		}
		return probe.GetBitSize()
	}

	if rec.NumFields() == 0 {
		return 0, nil
	}
	// Walk the fields with a child cursor, advancing it between fields via
	// relBitOffsetNext so that a field's own fixed offset or offset
	// expression is honoured, and reusing the size it computes as a
	// by-product. An unavailable field's frame is retyped to the no_data
	// singleton so it contributes zero bits.
	walker := c.clone()
	if err := walker.GotoFirstRecordField(); err != nil {
		return 0, err
	}
	if f0, _ := rec.FieldAt(0); f0.AvailableExpr != nil {
		avail, err := evalAvailable(c, f0.AvailableExpr)
		if err != nil {
			return 0, err
		}
		if !avail {
			walker.current().Type = NoDataType(rec.Format())
		}
	}
	var total int64
	for i := 0; i < rec.NumFields(); i++ {
		relOffset, fieldSize := int64(-1), int64(-1)
		if i < rec.NumFields()-1 {
			var err error
			relOffset, fieldSize, err = relBitOffsetNext(walker, rec, i, walker.current().BitOffset-c.current().BitOffset)
			if err != nil {
				return 0, err
			}
		}
		if fieldSize < 0 {
			var err error
			fieldSize, err = walker.GetBitSize()
			if err != nil {
				return 0, err
			}
		}
		total += fieldSize
		if i < rec.NumFields()-1 {
			next, _ := rec.FieldAt(i + 1)
			nextType := next.Type
			if next.AvailableExpr != nil {
				avail, err := evalAvailable(c, next.AvailableExpr)
				if err != nil {
					return 0, err
				}
				if !avail {
					nextType = NoDataType(rec.Format())
				}
			}
			walker.current().Type = nextType
			walker.current().Index = int64(i + 1)
			walker.current().BitOffset = c.current().BitOffset + relOffset
		}
	}
	return total, nil
}

// arrayBitSize multiplies out fixed-size elements, or walks and sums
// elements whose size varies per instance.
func (c *Cursor) arrayBitSize(arr *ArrayType) (int64, error) {
	n, err := c.arrayNumElements(arr)
	if err != nil {
		return 0, err
	}
	elem := arr.ElementType()
	if elemSize := elem.FixedBitSize(); elemSize >= 0 {
		return n * elemSize, nil
	}
	var total int64
	offset := int64(0)
	for i := int64(0); i < n; i++ {
		probe := c.clone()
		if err := probe.push(Frame{Type: elem, Index: i, BitOffset: c.current().BitOffset + offset}); err != nil {
			return 0, err
		}
		size, err := probe.GetBitSize()
		if err != nil {
			return 0, err
		}
		total += size
		offset += size
	}
	return total, nil
}

// --- relative field bit offsets ---

// relBitOffset resolves field i's offset relative to the record start:
// a fixed offset or offset expression is used directly; otherwise the
// nearest resolved predecessor is found and the fields between it and i
// are walked, summing sizes and skipping unavailable fields.
func relBitOffset(c *Cursor, rec *RecordType, i int) (int64, error) {
	field, err := rec.FieldAt(i)
	if err != nil {
		return 0, err
	}
	if field.BitOffset >= 0 {
		return field.BitOffset, nil
	}
	if field.BitOffsetExpr != nil {
		if field.AvailableExpr != nil {
			avail, err := evalAvailable(c, field.AvailableExpr)
			if err != nil {
				return 0, err
			}
			if !avail {
				if i == 0 {
					return 0, nil
				}
				return relBitOffset(c, rec, i-1)
			}
		}
		v, err := expr.Eval(field.BitOffsetExpr, c)
		if err != nil {
			return 0, addPath(err, "evaluating bit_offset_expr for field %q", field.Name)
		}
		return v.AsInt()
	}

	// Case 3: find the nearest resolved predecessor and walk forward.
	j := i - 1
	for j > 0 {
		f, _ := rec.FieldAt(j)
		if f.BitOffset >= 0 || f.BitOffsetExpr != nil {
			break
		}
		j--
	}
	prev, err := relBitOffset(c, rec, j)
	if err != nil {
		return 0, err
	}
	walker := c.clone()
	field0, _ := rec.FieldAt(j)
	parentOffset := c.current().BitOffset
	if err := walker.push(Frame{Type: field0.Type, Index: int64(j), BitOffset: parentOffset + prev}); err != nil {
		return 0, err
	}
	for k := j; k < i; k++ {
		f, _ := rec.FieldAt(k)
		avail := true
		if f.AvailableExpr != nil {
			avail, err = evalAvailable(c, f.AvailableExpr)
			if err != nil {
				return 0, err
			}
		}
		size := int64(0)
		if avail {
			size, err = walker.GetBitSize()
			if err != nil {
				return 0, err
			}
		}
		prev += size
		if k+1 < rec.NumFields() {
			nf, _ := rec.FieldAt(k + 1)
			walker.current().Type = nf.Type
			walker.current().Index = int64(k + 1)
			walker.current().BitOffset = parentOffset + prev
		}
	}
	return prev, nil
}

// relBitOffsetNext implements the O(1) shortcut: c is positioned at
// field i (childRelOffset relative to the record start); returns field
// i+1's relative offset. The second result is field i's bit size when the
// walk had to compute it anyway, or -1 when it did not, so callers
// walking a whole record can reuse it instead of recomputing.
func relBitOffsetNext(c *Cursor, rec *RecordType, i int, childRelOffset int64) (int64, int64, error) {
	next, err := rec.FieldAt(i + 1)
	if err != nil {
		return 0, -1, err
	}
	if next.BitOffset >= 0 {
		return next.BitOffset, -1, nil
	}
	if next.BitOffsetExpr != nil {
		// The offset and available expressions resolve names from the
		// enclosing record's scope, so they must be evaluated against a
		// cursor positioned at the record, not at field i.
		rc := c.clone()
		if err := rc.GotoParent(); err != nil {
			return 0, -1, err
		}
		off, err := relBitOffset(rc, rec, i+1)
		return off, -1, err
	}
	size, err := c.GetBitSize()
	if err != nil {
		return 0, -1, err
	}
	return childRelOffset + size, size, nil
}

func evalAvailable(c *Cursor, e *expr.Node) (bool, error) {
	v, err := expr.Eval(e, c)
	if err != nil {
		return false, addPath(err, "evaluating available_expr")
	}
	return v.AsBool()
}

// --- leaf reads ---

func (c *Cursor) currentBytes(byteLen int64) ([]byte, error) {
	off := c.current().BitOffset
	if off < 0 {
		return nil, newError(InvalidType, "no byte-addressable data at this frame")
	}
	return bitio.ReadBytes(c.data(), off, byteLen*8)
}

func (c *Cursor) ReadBool() (bool, error) {
	if c.backendFrame() {
		return c.product.Backend.ReadBool(c.current().Type)
	}
	v, err := c.ReadInt()
	return v != 0, err
}

func (c *Cursor) ReadInt() (int64, error) {
	t := c.current().Type
	if c.backendFrame() {
		return c.product.Backend.ReadInt(t)
	}
	it, ok := t.(*IntegerType)
	if !ok {
		if sp, ok := t.(*SpecialType); ok {
			return c.readSpecialInt(sp)
		}
		return 0, newError(InvalidType, "read_int on a %v", t.Class())
	}
	if c.conversionFor(it) != nil {
		return 0, newError(InvalidType, "read_int on a leaf with an active conversion; its read type is float64")
	}
	return c.readRawInt(it)
}

// readRawInt reads an integer leaf without applying any conversion.
func (c *Cursor) readRawInt(it *IntegerType) (int64, error) {
	if it.Format() == FormatAscii {
		if m := c.matchedMapping(it.Mappings); m != nil {
			return m.Value, nil
		}
		size := it.FixedBitSize()
		if size < 0 {
			return 0, productError(c.current().BitOffset, "no mapping matches the data and the integer has no fixed size")
		}
		text, err := c.readAsciiText(size)
		if err != nil {
			return 0, err
		}
		return bitio.DefaultASCIINumberParser{}.ParseInt(text)
	}
	order := bitio.BigEndian
	if it.Endianness == LittleEndian {
		order = bitio.LittleEndian
	}
	if isUnsignedReadType(it.ReadType) {
		u, err := bitio.ReadUint(c.data(), c.current().BitOffset, int(it.FixedBitSize()), order)
		return int64(u), err
	}
	return bitio.ReadInt(c.data(), c.current().BitOffset, int(it.FixedBitSize()), order)
}

// matchedMapping returns the first mapping whose text equals the bytes at
// the cursor's position, or nil when none matches.
func (c *Cursor) matchedMapping(mappings []Mapping) *Mapping {
	for i := range mappings {
		m := &mappings[i]
		b, err := c.currentBytes(int64(len(m.Text)))
		if err != nil {
			continue
		}
		if string(b) == m.Text {
			return m
		}
	}
	return nil
}

// conversionFor returns the Conversion in effect for t, or nil when t has
// none or the product was opened with conversions disabled.
func (c *Cursor) conversionFor(t Type) *Conversion {
	if !c.product.options.PerformConversions {
		return nil
	}
	switch tt := t.(type) {
	case *IntegerType:
		return tt.Conversion
	case *RealType:
		return tt.Conversion
	default:
		return nil
	}
}

// GetReadType reports the native read type of the current numeric leaf.
// An active conversion widens the result to float64, since the converted
// value is no longer representable in the storage type.
func (c *Cursor) GetReadType() (ReadType, error) {
	switch tt := c.current().Type.(type) {
	case *IntegerType:
		if c.conversionFor(tt) != nil {
			return ReadFloat64, nil
		}
		return tt.ReadType, nil
	case *RealType:
		if c.conversionFor(tt) != nil {
			return ReadFloat64, nil
		}
		return tt.ReadType, nil
	default:
		return 0, newError(InvalidType, "get_read_type on a %v", c.current().Type.Class())
	}
}

func isUnsignedReadType(rt ReadType) bool {
	switch rt {
	case ReadUint8, ReadUint16, ReadUint32, ReadUint64:
		return true
	default:
		return false
	}
}

func (c *Cursor) ReadFloat() (float64, error) {
	t := c.current().Type
	if c.backendFrame() {
		return c.product.Backend.ReadFloat(t)
	}
	switch tt := t.(type) {
	case *RealType:
		raw, err := c.readRawFloat(tt)
		if err != nil {
			return 0, err
		}
		if conv := c.conversionFor(tt); conv != nil {
			return conv.Apply(raw), nil
		}
		return raw, nil
	case *IntegerType:
		i, err := c.readRawInt(tt)
		if err != nil {
			return 0, err
		}
		if conv := c.conversionFor(tt); conv != nil {
			return conv.Apply(float64(i)), nil
		}
		return float64(i), nil
	case *SpecialType:
		return c.readSpecialFloat(tt)
	default:
		return 0, newError(InvalidType, "read_float on a %v", t.Class())
	}
}

// readRawFloat reads a real leaf without applying any conversion.
func (c *Cursor) readRawFloat(rt *RealType) (float64, error) {
	if rt.Format() == FormatAscii {
		if m := c.matchedMapping(rt.Mappings); m != nil {
			return float64(m.Value), nil
		}
		text, err := c.readAsciiText(rt.FixedBitSize())
		if err != nil {
			return 0, err
		}
		return bitio.DefaultASCIINumberParser{}.ParseFloat(text)
	}
	order := bitio.BigEndian
	if rt.Endianness == LittleEndian {
		order = bitio.LittleEndian
	}
	if rt.ReadType == ReadFloat32 {
		f, err := bitio.ReadFloat32(c.data(), c.current().BitOffset, order)
		return float64(f), err
	}
	return bitio.ReadFloat64(c.data(), c.current().BitOffset, order)
}

func (c *Cursor) readSpecialInt(sp *SpecialType) (int64, error) {
	f, err := c.readSpecialFloat(sp)
	return int64(f), err
}

func (c *Cursor) readSpecialFloat(sp *SpecialType) (float64, error) {
	switch sp.Kind {
	case SpecialTime:
		probe := c.clone()
		probe.current().Type = sp.BaseType
		v, err := expr.Eval(sp.ValueExpr, probe)
		if err != nil {
			return 0, addPath(err, "evaluating time value_expr")
		}
		return v.AsFloat()
	case SpecialVSFInteger:
		probe := c.clone()
		probe.current().Type = sp.BaseType
		if err := probe.GotoRecordFieldByName("scale_factor"); err != nil {
			return 0, err
		}
		scale, err := probe.ReadInt()
		if err != nil {
			return 0, err
		}
		probe.GotoParent()
		if err := probe.GotoRecordFieldByName("value"); err != nil {
			return 0, err
		}
		value, err := probe.ReadInt()
		if err != nil {
			return 0, err
		}
		return float64(value) * pow10(scale), nil
	default:
		return 0, newError(InvalidType, "read_float on special type %v", sp.Kind)
	}
}

func pow10(exp int64) float64 {
	result := 1.0
	neg := exp < 0
	if neg {
		exp = -exp
	}
	for i := int64(0); i < exp; i++ {
		result *= 10
	}
	if neg {
		return 1 / result
	}
	return result
}

func (c *Cursor) readAsciiText(bitSize int64) (string, error) {
	b, err := c.currentBytes(bitSize / 8)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Cursor) ReadString() (string, error) {
	t := c.current().Type
	if c.backendFrame() {
		return c.product.Backend.ReadString(t)
	}
	tt, ok := t.(*TextType)
	if !ok {
		return "", newError(InvalidType, "read_string on a %v", t.Class())
	}
	if tt.SpecialText != SpecialTextDefault {
		includeEOL := tt.SpecialText == SpecialTextLineWithEOL
		return bitio.Line(c.data(), c.current().BitOffset/8, includeEOL)
	}
	size, err := c.GetBitSize()
	if err != nil {
		return "", err
	}
	return c.readAsciiText(size)
}

func (c *Cursor) AsciiLine(includeEOL bool) (string, error) {
	return bitio.Line(c.data(), c.current().BitOffset/8, includeEOL)
}

func (c *Cursor) ReadBytes() ([]byte, error) {
	t := c.current().Type
	if c.backendFrame() {
		return c.product.Backend.ReadBytes(t)
	}
	size, err := c.GetBitSize()
	if err != nil {
		return nil, err
	}
	return bitio.ReadBytes(c.data(), c.current().BitOffset, size)
}

// --- product variables (exposed for expr.Target) ---

func (c *Cursor) VariableExists(name string) bool {
	_, ok := c.product.variableIndex(name)
	return ok
}

func (c *Cursor) VariableValue(name string, index int64) (int64, error) {
	return c.product.variableValue(name, index)
}

func (c *Cursor) VariableSet(name string, index int64, value int64) error {
	return c.product.variableSet(name, index, value)
}

func (c *Cursor) VariableIndex(name string, value int64) (int64, error) {
	storage, err := c.product.variableStorage(name)
	if err != nil {
		return -1, err
	}
	for i, v := range storage {
		if v == value {
			return int64(i), nil
		}
	}
	return -1, nil
}

// ReadAuto reads the current leaf using its natural type, used by the
// expression evaluator to turn a bare path into a value.
func (c *Cursor) ReadAuto() (expr.Value, error) {
	t := c.current().Type
	switch t.Class() {
	case ClassInteger:
		if c.conversionFor(t) != nil {
			v, err := c.ReadFloat()
			return floatValueOf(v), err
		}
		v, err := c.ReadInt()
		return intValueOf(v), err
	case ClassReal:
		v, err := c.ReadFloat()
		return floatValueOf(v), err
	case ClassText:
		v, err := c.ReadString()
		return strValueOf(v), err
	case ClassSpecial:
		v, err := c.ReadFloat()
		return floatValueOf(v), err
	default:
		return expr.Value{}, newError(InvalidType, "cannot read a scalar value from a %v", t.Class())
	}
}

func intValueOf(v int64) expr.Value     { return expr.NewIntValue(v) }
func floatValueOf(v float64) expr.Value { return expr.NewFloatValue(v) }
func strValueOf(v string) expr.Value    { return expr.NewStringValue(v) }
