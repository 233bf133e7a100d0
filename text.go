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

// TextReadType selects a text leaf's native representation.
type TextReadType int

const (
	TextChar TextReadType = iota
	TextString
)

// SpecialTextType marks an ASCII text leaf whose content follows a
// line-oriented convention rather than a fixed byte count.
type SpecialTextType int

const (
	SpecialTextDefault SpecialTextType = iota
	SpecialTextLineSeparator
	SpecialTextLineWithEOL
	SpecialTextLineWithoutEOL
	SpecialTextWhitespace
)

// TextType implements the Text variant.
type TextType struct {
	base

	ReadType    TextReadType
	FixedValue  string // "" if unset
	HasFixed    bool
	SpecialText SpecialTextType
}

// NewTextType builds a text leaf. Exactly one of bitSize (>=0, a multiple
// of 8) or sizeExpr must be given. A char read type requires
// bitSize == 8.
func NewTextType(format Format, rt TextReadType, bitSize int64, sizeExpr *expr.Node) (*TextType, error) {
	if bitSize < 0 && sizeExpr == nil {
		return nil, newError(DataDefinition, "text type needs a fixed bit_size or a size_expr")
	}
	if sizeExpr == nil {
		if bitSize%8 != 0 {
			return nil, newError(DataDefinition, "text bit_size %d is not a multiple of 8", bitSize)
		}
		if rt == TextChar && bitSize != 8 {
			return nil, newError(DataDefinition, "char read type requires bit_size == 8, got %d", bitSize)
		}
	}
	t := &TextType{base: newBase(format, ClassText), ReadType: rt}
	if sizeExpr != nil {
		t.bitSize = -1
		t.sizeExpr = sizeExpr
	} else {
		t.bitSize = bitSize
	}
	return t, nil
}

// SetFixedValue records an equality check applied on read, failing
// if its length disagrees with the type's fixed bit size.
func (t *TextType) SetFixedValue(v string) error {
	if t.bitSize >= 0 && t.bitSize != 8*int64(len(v)) {
		return newError(DataDefinition, "fixed_value length %d does not match bit_size %d", len(v), t.bitSize)
	}
	t.FixedValue = v
	t.HasFixed = true
	return nil
}
