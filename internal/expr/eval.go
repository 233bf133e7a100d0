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

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// epoch2000 is the reference epoch product times are expressed in seconds
// since, matching the special "time" type's double representation.
var epoch2000 = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// formatSecondsSince2000 renders a seconds-since-epoch2000 value the way
// strtime() does: a sortable, human-readable UTC timestamp.
func formatSecondsSince2000(seconds float64) string {
	if math.IsNaN(seconds) {
		return "NaN"
	}
	t := epoch2000.Add(time.Duration(seconds * float64(time.Second)))
	return t.Format("2006-01-02T15:04:05.000000Z")
}

// Target is the minimal cursor surface the evaluator needs. package pfd's
// Cursor implements it; the evaluator never reaches into cursor internals
// directly, so the expression language can be tested against a fake
// Target with no product file at all.
//
// Every mutating method moves the "current node" in place; callers that
// need an isolated probe (union resolution, detection-tree path checks,
// the `at`/`exists` operators) call Clone first.
type Target interface {
	Clone() Target

	GotoRoot() error
	GotoParent() error
	GotoHere() error
	GotoBegin() error
	GotoField(name string) error
	GotoArrayElement(index int64) error
	GotoAttribute(name string) error

	// ReadAuto reads the scalar value at the current position using its
	// declared type, for use when a path expression is evaluated in a
	// context that wants a value rather than a navigation result.
	ReadAuto() (Value, error)

	NumElements() (int64, error)
	NumDims() (int64, error)
	Dim(i int64) (int64, error)
	BitSize() (int64, error)
	ByteSize() (int64, error)
	BitOffset() (int64, error)
	ByteOffset() (int64, error)
	FileSize() int64
	Filename() string
	ProductClass() string
	ProductType() string
	ProductVersion() int64
	ProductFormat() string
	Index() int64

	AsciiLine(includeEOL bool) (string, error)

	VariableExists(name string) bool
	VariableValue(name string, index int64) (int64, error)
	VariableSet(name string, index int64, value int64) error
	VariableIndex(name string, value int64) (int64, error)
}

// env is a small linked-list environment for `for`/`with` bound variables.
type env struct {
	parent *env
	name   string
	val    Value
}

func (e *env) lookup(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.val, true
		}
	}
	return Value{}, false
}

func (e *env) push(name string, val Value) *env {
	return &env{parent: e, name: name, val: val}
}

// Eval evaluates n against t, the "current node" cursor position.
func Eval(n *Node, t Target) (Value, error) {
	return eval(n, t, nil)
}

// evalValue evaluates n against a clone of t, so that navigation inside
// one operand never moves t for the next, and, if the result is a bare
// navigation (ResultNode), coerces it to a scalar by reading the leaf the
// clone is now positioned at. Used wherever an operand is expected to
// carry a usable value (arithmetic, comparison, string, aggregation
// operands) as opposed to path operands of `exists`/`at`, which must stay
// raw navigations.
func evalValue(n *Node, t Target, e *env) (Value, error) {
	probe := t.Clone()
	v, err := eval(n, probe, e)
	if err != nil {
		return Value{}, err
	}
	if v.Type == ResultNode {
		return probe.ReadAuto()
	}
	return v, nil
}

func eval(n *Node, t Target, e *env) (Value, error) {
	if n == nil {
		return Value{}, fmt.Errorf("expr: nil node")
	}

	switch n.Tag {
	case TagConstantBoolean:
		return boolValue(n.BoolVal), nil
	case TagConstantInteger:
		return intValue(n.IntVal), nil
	case TagConstantFloat:
		return floatValue(n.FloatVal), nil
	case TagConstantString, TagConstantRawString:
		return strValue(n.StringVal), nil

	case TagIdent:
		if v, ok := e.lookup(n.Ident); ok {
			return v, nil
		}
		return Value{}, fmt.Errorf("expr: unbound identifier %q", n.Ident)

	case TagGotoRoot:
		return nodeValue(), t.GotoRoot()
	case TagGotoParent:
		return nodeValue(), t.GotoParent()
	case TagGotoHere:
		return nodeValue(), t.GotoHere()
	case TagGotoBegin:
		return nodeValue(), t.GotoBegin()
	case TagGotoField:
		if v, ok := e.lookup(n.Operands[0].Ident); ok {
			return v, nil
		}
		return nodeValue(), t.GotoField(n.Operands[0].Ident)
	case TagGotoArrayElement:
		idx, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		i, err := idx.AsInt()
		if err != nil {
			return Value{}, err
		}
		return nodeValue(), t.GotoArrayElement(i)
	case TagGotoAttribute:
		return nodeValue(), t.GotoAttribute(n.Operands[0].Ident)
	case TagGoto:
		return eval(n.Operands[0], t, e)
	case TagSequence:
		if _, err := eval(n.Operands[0], t, e); err != nil {
			return Value{}, err
		}
		return eval(n.Operands[1], t, e)
	case TagAt:
		clone := t.Clone()
		if _, err := eval(n.Operands[0], clone, e); err != nil {
			return Value{}, err
		}
		return eval(n.Operands[1], clone, e)
	case TagExists:
		clone := t.Clone()
		_, err := eval(n.Operands[0], clone, e)
		return boolValue(err == nil), nil

	case TagIf:
		cond, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		b, err := cond.AsBool()
		if err != nil {
			return Value{}, err
		}
		if b {
			return eval(n.Operands[1], t, e)
		}
		return eval(n.Operands[2], t, e)
	case TagFor:
		start, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		end, err := evalValue(n.Operands[2], t, e)
		if err != nil {
			return Value{}, err
		}
		s, err := start.AsInt()
		if err != nil {
			return Value{}, err
		}
		en, err := end.AsInt()
		if err != nil {
			return Value{}, err
		}
		for i := s; i < en; i++ {
			if _, err := eval(n.Operands[3], t, e.push(n.Operands[0].Ident, intValue(i))); err != nil {
				return Value{}, err
			}
		}
		return voidValue(), nil
	case TagWith:
		val, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		return eval(n.Operands[2], t, e.push(n.Operands[0].Ident, val))

	case TagNumElements:
		n, err := t.NumElements()
		return intValue(n), err
	case TagNumDims:
		n, err := t.NumDims()
		return intValue(n), err
	case TagDim:
		i, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		ii, err := i.AsInt()
		if err != nil {
			return Value{}, err
		}
		d, err := t.Dim(ii)
		return intValue(d), err
	case TagBitSize:
		v, err := t.BitSize()
		return intValue(v), err
	case TagByteSize:
		v, err := t.ByteSize()
		return intValue(v), err
	case TagBitOffset:
		v, err := t.BitOffset()
		return intValue(v), err
	case TagByteOffset:
		v, err := t.ByteOffset()
		return intValue(v), err
	case TagFileSize:
		return intValue(t.FileSize()), nil
	case TagFilename:
		return strValue(t.Filename()), nil
	case TagProductClass:
		return strValue(t.ProductClass()), nil
	case TagProductType:
		return strValue(t.ProductType()), nil
	case TagProductVersion:
		return intValue(t.ProductVersion()), nil
	case TagProductFormat:
		return strValue(t.ProductFormat()), nil
	case TagIndex:
		return intValue(t.Index()), nil

	case TagArrayAdd, TagArrayMin, TagArrayMax, TagArrayCount, TagArrayAll, TagArrayExists, TagArrayIndex:
		return evalArrayAgg(n, t, e)

	case TagAnd:
		l, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		r, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		lb, err := l.AsBool()
		if err != nil {
			return Value{}, err
		}
		rb, err := r.AsBool()
		if err != nil {
			return Value{}, err
		}
		return boolValue(lb && rb), nil
	case TagOr:
		l, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		r, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		lb, err := l.AsBool()
		if err != nil {
			return Value{}, err
		}
		rb, err := r.AsBool()
		if err != nil {
			return Value{}, err
		}
		return boolValue(lb || rb), nil
	case TagLogicalAnd:
		l, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		lb, err := l.AsBool()
		if err != nil {
			return Value{}, err
		}
		if !lb {
			return boolValue(false), nil
		}
		r, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		rb, err := r.AsBool()
		return boolValue(rb), err
	case TagLogicalOr:
		l, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		lb, err := l.AsBool()
		if err != nil {
			return Value{}, err
		}
		if lb {
			return boolValue(true), nil
		}
		r, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		rb, err := r.AsBool()
		return boolValue(rb), err
	case TagNot:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		b, err := v.AsBool()
		return boolValue(!b), err

	case TagEqual, TagNotEqual, TagLess, TagLessEqual, TagGreater, TagGreaterEqual:
		return evalCompare(n, t, e)

	case TagAdd, TagSubtract, TagMultiply, TagDivide, TagModulo, TagPower, TagMin, TagMax:
		return evalArith(n, t, e)
	case TagNeg:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		if v.Type == ResultFloat {
			return floatValue(-v.Float), nil
		}
		i, err := v.AsInt()
		return intValue(-i), err
	case TagAbs:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		if v.Type == ResultFloat {
			return floatValue(math.Abs(v.Float)), nil
		}
		i, err := v.AsInt()
		if err != nil {
			return Value{}, err
		}
		if i < 0 {
			i = -i
		}
		return intValue(i), nil
	case TagCeil, TagFloor, TagRound:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		f, err := v.AsFloat()
		if err != nil {
			return Value{}, err
		}
		switch n.Tag {
		case TagCeil:
			return intValue(int64(math.Ceil(f))), nil
		case TagFloor:
			return intValue(int64(math.Floor(f))), nil
		default:
			return intValue(int64(math.Round(f))), nil
		}

	case TagString:
		return evalString(n, t, e)
	case TagStrTime:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		f, err := v.AsFloat()
		if err != nil {
			return Value{}, err
		}
		return strValue(formatSecondsSince2000(f)), nil
	case TagSubstr:
		return evalSubstr(n, t, e)
	case TagLTrim:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		s, err := v.AsString()
		return strValue(strings.TrimLeft(s, " \t\r\n")), err
	case TagRTrim:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		s, err := v.AsString()
		return strValue(strings.TrimRight(s, " \t\r\n")), err
	case TagTrim:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		s, err := v.AsString()
		return strValue(strings.TrimSpace(s)), err
	case TagLength:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		s, err := v.AsString()
		return intValue(int64(len(s))), err
	case TagRegex:
		return evalRegex(n, t, e)
	case TagBytes:
		v, err := evalValue(n.Operands[0], t, e)
		return v, err

	case TagInteger:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		switch v.Type {
		case ResultString:
			i, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
			return intValue(i), err
		default:
			i, err := v.AsInt()
			return intValue(i), err
		}
	case TagFloat:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		switch v.Type {
		case ResultString:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
			return floatValue(f), err
		default:
			f, err := v.AsFloat()
			return floatValue(f), err
		}
	case TagTime:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		f, err := v.AsFloat()
		return floatValue(f), err

	case TagIsNaN:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		f, err := v.AsFloat()
		return boolValue(math.IsNaN(f)), err
	case TagIsInf:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		f, err := v.AsFloat()
		return boolValue(math.IsInf(f, 0)), err
	case TagIsPlusInf:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		f, err := v.AsFloat()
		return boolValue(math.IsInf(f, 1)), err
	case TagIsMinInf:
		v, err := evalValue(n.Operands[0], t, e)
		if err != nil {
			return Value{}, err
		}
		f, err := v.AsFloat()
		return boolValue(math.IsInf(f, -1)), err

	case TagVariableExists:
		return boolValue(t.VariableExists(n.Operands[0].Ident)), nil
	case TagVariableValue:
		idx := int64(0)
		if n.Operands[1] != nil {
			v, err := evalValue(n.Operands[1], t, e)
			if err != nil {
				return Value{}, err
			}
			idx, err = v.AsInt()
			if err != nil {
				return Value{}, err
			}
		}
		val, err := t.VariableValue(n.Operands[0].Ident, idx)
		return intValue(val), err
	case TagVariableSet:
		idx := int64(0)
		valOperand := n.Operands[1]
		if n.Operands[2] != nil {
			v, err := evalValue(n.Operands[1], t, e)
			if err != nil {
				return Value{}, err
			}
			idx, err = v.AsInt()
			if err != nil {
				return Value{}, err
			}
			valOperand = n.Operands[2]
		}
		v, err := evalValue(valOperand, t, e)
		if err != nil {
			return Value{}, err
		}
		iv, err := v.AsInt()
		if err != nil {
			return Value{}, err
		}
		return voidValue(), t.VariableSet(n.Operands[0].Ident, idx, iv)
	case TagVariableIndex:
		v, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		iv, err := v.AsInt()
		if err != nil {
			return Value{}, err
		}
		idx, err := t.VariableIndex(n.Operands[0].Ident, iv)
		return intValue(idx), err

	case TagAsciiLine:
		includeEOL := false
		if n.Operands[0] != nil {
			v, err := evalValue(n.Operands[0], t, e)
			if err != nil {
				return Value{}, err
			}
			includeEOL, err = v.AsBool()
			if err != nil {
				return Value{}, err
			}
		}
		s, err := t.AsciiLine(includeEOL)
		return strValue(s), err

	default:
		return Value{}, fmt.Errorf("expr: unhandled tag %v", n.Tag)
	}
}

func evalCompare(n *Node, t Target, e *env) (Value, error) {
	l, err := evalValue(n.Operands[0], t, e)
	if err != nil {
		return Value{}, err
	}
	r, err := evalValue(n.Operands[1], t, e)
	if err != nil {
		return Value{}, err
	}
	if l.Type == ResultString || r.Type == ResultString {
		ls, err := l.AsString()
		if err != nil {
			return Value{}, err
		}
		rs, err := r.AsString()
		if err != nil {
			return Value{}, err
		}
		switch n.Tag {
		case TagEqual:
			return boolValue(ls == rs), nil
		case TagNotEqual:
			return boolValue(ls != rs), nil
		case TagLess:
			return boolValue(ls < rs), nil
		case TagLessEqual:
			return boolValue(ls <= rs), nil
		case TagGreater:
			return boolValue(ls > rs), nil
		default:
			return boolValue(ls >= rs), nil
		}
	}
	if l.Type == ResultFloat || r.Type == ResultFloat {
		lf, err := l.AsFloat()
		if err != nil {
			return Value{}, err
		}
		rf, err := r.AsFloat()
		if err != nil {
			return Value{}, err
		}
		return compareFloat(n.Tag, lf, rf), nil
	}
	li, err := l.AsInt()
	if err != nil {
		return Value{}, err
	}
	ri, err := r.AsInt()
	if err != nil {
		return Value{}, err
	}
	return compareInt(n.Tag, li, ri), nil
}

func compareFloat(tag Tag, l, r float64) Value {
	switch tag {
	case TagEqual:
		return boolValue(l == r)
	case TagNotEqual:
		return boolValue(l != r)
	case TagLess:
		return boolValue(l < r)
	case TagLessEqual:
		return boolValue(l <= r)
	case TagGreater:
		return boolValue(l > r)
	default:
		return boolValue(l >= r)
	}
}

func compareInt(tag Tag, l, r int64) Value {
	switch tag {
	case TagEqual:
		return boolValue(l == r)
	case TagNotEqual:
		return boolValue(l != r)
	case TagLess:
		return boolValue(l < r)
	case TagLessEqual:
		return boolValue(l <= r)
	case TagGreater:
		return boolValue(l > r)
	default:
		return boolValue(l >= r)
	}
}

func evalArith(n *Node, t Target, e *env) (Value, error) {
	l, err := evalValue(n.Operands[0], t, e)
	if err != nil {
		return Value{}, err
	}
	r, err := evalValue(n.Operands[1], t, e)
	if err != nil {
		return Value{}, err
	}
	if l.Type == ResultFloat || r.Type == ResultFloat || n.Tag == TagPower {
		lf, err := l.AsFloat()
		if err != nil {
			return Value{}, err
		}
		rf, err := r.AsFloat()
		if err != nil {
			return Value{}, err
		}
		switch n.Tag {
		case TagAdd:
			return floatValue(lf + rf), nil
		case TagSubtract:
			return floatValue(lf - rf), nil
		case TagMultiply:
			return floatValue(lf * rf), nil
		case TagDivide:
			return floatValue(lf / rf), nil
		case TagModulo:
			return floatValue(math.Mod(lf, rf)), nil
		case TagPower:
			return floatValue(math.Pow(lf, rf)), nil
		case TagMin:
			return floatValue(math.Min(lf, rf)), nil
		default:
			return floatValue(math.Max(lf, rf)), nil
		}
	}
	li, err := l.AsInt()
	if err != nil {
		return Value{}, err
	}
	ri, err := r.AsInt()
	if err != nil {
		return Value{}, err
	}
	switch n.Tag {
	case TagAdd:
		return intValue(li + ri), nil
	case TagSubtract:
		return intValue(li - ri), nil
	case TagMultiply:
		return intValue(li * ri), nil
	case TagDivide:
		if ri == 0 {
			return Value{}, fmt.Errorf("expr: integer division by zero")
		}
		return intValue(li / ri), nil
	case TagModulo:
		if ri == 0 {
			return Value{}, fmt.Errorf("expr: integer modulo by zero")
		}
		return intValue(li % ri), nil
	case TagMin:
		if li < ri {
			return intValue(li), nil
		}
		return intValue(ri), nil
	default: // TagMax
		if li > ri {
			return intValue(li), nil
		}
		return intValue(ri), nil
	}
}

func evalString(n *Node, t Target, e *env) (Value, error) {
	v, err := evalValue(n.Operands[0], t, e)
	if err != nil {
		return Value{}, err
	}
	if n.Operands[1] != nil {
		lenV, err := evalValue(n.Operands[1], t, e)
		if err != nil {
			return Value{}, err
		}
		l, err := lenV.AsInt()
		if err != nil {
			return Value{}, err
		}
		s, err := v.AsString()
		if err != nil {
			return Value{}, err
		}
		if int64(len(s)) > l {
			s = s[:l]
		}
		return strValue(s), nil
	}
	switch v.Type {
	case ResultString:
		return v, nil
	case ResultInteger:
		return strValue(strconv.FormatInt(v.Int, 10)), nil
	case ResultFloat:
		return strValue(strconv.FormatFloat(v.Float, 'g', -1, 64)), nil
	case ResultBoolean:
		return strValue(strconv.FormatBool(v.Bool)), nil
	default:
		return Value{}, fmt.Errorf("expr: cannot convert %v to string", v.Type)
	}
}

func evalSubstr(n *Node, t Target, e *env) (Value, error) {
	sv, err := evalValue(n.Operands[0], t, e)
	if err != nil {
		return Value{}, err
	}
	s, err := sv.AsString()
	if err != nil {
		return Value{}, err
	}
	offV, err := evalValue(n.Operands[1], t, e)
	if err != nil {
		return Value{}, err
	}
	off, err := offV.AsInt()
	if err != nil {
		return Value{}, err
	}
	lenV, err := evalValue(n.Operands[2], t, e)
	if err != nil {
		return Value{}, err
	}
	l, err := lenV.AsInt()
	if err != nil {
		return Value{}, err
	}
	if off < 0 || off > int64(len(s)) {
		return Value{}, fmt.Errorf("expr: substr offset %d out of range for string of length %d", off, len(s))
	}
	end := off + l
	if end > int64(len(s)) {
		end = int64(len(s))
	}
	return strValue(s[off:end]), nil
}

func evalRegex(n *Node, t Target, e *env) (Value, error) {
	pv, err := evalValue(n.Operands[0], t, e)
	if err != nil {
		return Value{}, err
	}
	pattern, err := pv.AsString()
	if err != nil {
		return Value{}, err
	}
	sv, err := evalValue(n.Operands[1], t, e)
	if err != nil {
		return Value{}, err
	}
	s, err := sv.AsString()
	if err != nil {
		return Value{}, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Value{}, fmt.Errorf("expr: invalid regex %q: %w", pattern, err)
	}
	return boolValue(re.MatchString(s)), nil
}

// evalArrayAgg implements the array_* aggregation operators. The sole
// operand is a path (raw navigation) to the array to aggregate over.
func evalArrayAgg(n *Node, t Target, e *env) (Value, error) {
	clone := t.Clone()
	if _, err := eval(n.Operands[0], clone, e); err != nil {
		return Value{}, err
	}
	if n.Tag == TagArrayIndex {
		return intValue(clone.Index()), nil
	}
	count, err := clone.NumElements()
	if err != nil {
		return Value{}, err
	}
	if n.Tag == TagArrayCount {
		return intValue(count), nil
	}

	var sum, minV, maxV float64
	anyTrue, allTrue := false, true
	isFloat := false
	for i := int64(0); i < count; i++ {
		elem := clone.Clone()
		if err := elem.GotoArrayElement(i); err != nil {
			return Value{}, err
		}
		v, err := elem.ReadAuto()
		if err != nil {
			return Value{}, err
		}
		switch n.Tag {
		case TagArrayAdd, TagArrayMin, TagArrayMax:
			f, err := v.AsFloat()
			if err != nil {
				return Value{}, err
			}
			if v.Type == ResultFloat {
				isFloat = true
			}
			if i == 0 {
				minV, maxV = f, f
			}
			sum += f
			if f < minV {
				minV = f
			}
			if f > maxV {
				maxV = f
			}
		case TagArrayAll, TagArrayExists:
			b, err := v.AsBool()
			if err != nil {
				return Value{}, err
			}
			if b {
				anyTrue = true
			} else {
				allTrue = false
			}
		}
	}

	switch n.Tag {
	case TagArrayAdd:
		if isFloat {
			return floatValue(sum), nil
		}
		return intValue(int64(sum)), nil
	case TagArrayMin:
		if isFloat {
			return floatValue(minV), nil
		}
		return intValue(int64(minV)), nil
	case TagArrayMax:
		if isFloat {
			return floatValue(maxV), nil
		}
		return intValue(int64(maxV)), nil
	case TagArrayAll:
		return boolValue(allTrue), nil
	default: // TagArrayExists
		return boolValue(anyTrue), nil
	}
}
