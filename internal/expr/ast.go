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

package expr

// Node is an expression AST node: a tag, a static result type, a
// constant-foldability flag, an optional identifier payload, and up to
// four operand sub-expressions. This mirrors the design's literal node
// shape rather than one Go type per operator, because the detection tree
// and the record/array validators need to walk an expression
// generically (structural equality, is_constant propagation) without a
// type switch over dozens of cases.
type Node struct {
	Tag        Tag
	Result     ResultType
	IsConstant bool

	// Ident carries a field/attribute/variable/loop-variable name for the
	// tags that need one (TagGotoField, TagGotoAttribute, TagIdent,
	// TagVariableExists/Value/Set/Index's name operand, ...).
	Ident string

	// Literal payloads for TagConstantBoolean/Integer/Float/String/RawString.
	BoolVal   bool
	IntVal    int64
	FloatVal  float64
	StringVal string

	Operands [4]*Node
}

// NewConstantBoolean builds a constant boolean leaf.
func NewConstantBoolean(v bool) *Node {
	return &Node{Tag: TagConstantBoolean, Result: ResultBoolean, IsConstant: true, BoolVal: v}
}

// NewConstantInteger builds a constant integer leaf.
func NewConstantInteger(v int64) *Node {
	return &Node{Tag: TagConstantInteger, Result: ResultInteger, IsConstant: true, IntVal: v}
}

// NewConstantFloat builds a constant float leaf.
func NewConstantFloat(v float64) *Node {
	return &Node{Tag: TagConstantFloat, Result: ResultFloat, IsConstant: true, FloatVal: v}
}

// NewConstantString builds a constant string leaf (escaped form).
func NewConstantString(v string) *Node {
	return &Node{Tag: TagConstantString, Result: ResultString, IsConstant: true, StringVal: v}
}

// NewConstantRawString builds a constant raw (unescaped) string leaf.
func NewConstantRawString(v string) *Node {
	return &Node{Tag: TagConstantRawString, Result: ResultString, IsConstant: true, StringVal: v}
}

// NewIdent builds a bare-identifier operand used for loop/bound variable
// names and product-variable names; see TagIdent.
func NewIdent(name string) *Node {
	return &Node{Tag: TagIdent, Result: ResultInvalid, IsConstant: false, Ident: name}
}

// navigationTags are never constant: they depend on the cursor position
// they are evaluated against.
var navigationTags = map[Tag]bool{
	TagGotoRoot: true, TagGotoParent: true, TagGotoField: true, TagGotoArrayElement: true,
	TagGotoAttribute: true, TagGotoHere: true, TagGotoBegin: true, TagGoto: true, TagAt: true,
	TagExists: true, TagNumElements: true, TagNumDims: true, TagDim: true, TagBitSize: true,
	TagByteSize: true, TagBitOffset: true, TagByteOffset: true, TagFileSize: true,
	TagFilename: true, TagProductClass: true, TagProductType: true, TagProductVersion: true,
	TagProductFormat: true, TagIndex: true, TagArrayAdd: true, TagArrayMin: true,
	TagArrayMax: true, TagArrayCount: true, TagArrayAll: true, TagArrayExists: true,
	TagArrayIndex: true, TagVariableExists: true, TagVariableValue: true, TagVariableSet: true,
	TagVariableIndex: true, TagAsciiLine: true,
}

// New builds a non-leaf Node, deriving IsConstant from its operands: a node
// is constant only if its tag is not a cursor/variable-dependent
// navigation or reflection op and every non-nil operand is itself
// constant. This implements the "is_constant flag marks subtrees that can
// be pre-evaluated" rule.
func New(tag Tag, result ResultType, operands ...*Node) *Node {
	n := &Node{Tag: tag, Result: result}
	for i, op := range operands {
		if i >= len(n.Operands) {
			break
		}
		n.Operands[i] = op
	}
	if navigationTags[tag] {
		return n
	}
	constant := true
	for _, op := range operands {
		if op == nil {
			continue
		}
		if op.Tag == TagIdent {
			continue // a bound variable name is not itself evaluated
		}
		if !op.IsConstant {
			constant = false
			break
		}
	}
	n.IsConstant = constant
	return n
}

// Equal implements the structural equality used by the detection tree
// to decide whether two expression subtrees test the same thing:
// tags match, identifiers match byte-for-byte, literal payloads match, and
// operands are pairwise equal. This is reflexive, symmetric and transitive
// by construction (ordinary deep structural comparison).
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag || a.Ident != b.Ident {
		return false
	}
	switch a.Tag {
	case TagConstantBoolean:
		if a.BoolVal != b.BoolVal {
			return false
		}
	case TagConstantInteger:
		if a.IntVal != b.IntVal {
			return false
		}
	case TagConstantFloat:
		if a.FloatVal != b.FloatVal {
			return false
		}
	case TagConstantString, TagConstantRawString:
		if a.StringVal != b.StringVal {
			return false
		}
	}
	for i := range a.Operands {
		if !Equal(a.Operands[i], b.Operands[i]) {
			return false
		}
	}
	return true
}
