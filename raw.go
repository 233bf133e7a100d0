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

// RawType implements the Raw variant: a fixed-length byte blob.
type RawType struct {
	base

	FixedValue []byte // nil if unset
}

// NewRawType builds a raw leaf. Exactly one of byteSize (>=0) or sizeExpr
// must be given; byteSize is stored as a bit size internally per the
// bit/byte offset duality used throughout this package.
func NewRawType(format Format, byteSize int64, sizeExpr *expr.Node) (*RawType, error) {
	if byteSize < 0 && sizeExpr == nil {
		return nil, newError(DataDefinition, "raw type needs a fixed byte size or a size_expr")
	}
	r := &RawType{base: newBase(format, ClassRaw)}
	if sizeExpr != nil {
		r.bitSize = -1
		r.sizeExpr = sizeExpr
	} else {
		r.bitSize = byteSize * 8
	}
	return r, nil
}

// SetFixedValue records the expected byte content, failing if its length
// disagrees with the type's rounded fixed byte size.
func (r *RawType) SetFixedValue(v []byte) error {
	if r.bitSize >= 0 && (r.bitSize+7)/8 != int64(len(v)) {
		return newError(DataDefinition, "fixed_value length %d does not match byte size %d", len(v), (r.bitSize+7)/8)
	}
	r.FixedValue = v
	return nil
}
