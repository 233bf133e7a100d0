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

import "fmt"

// Value is the dynamically-typed result of evaluating a [Node]. Only one
// of the fields is meaningful, selected by Type.
type Value struct {
	Type  ResultType
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// Bool/Int/Float/String/Void/Node helpers build Values, mirroring the
// evaluator's result types.

func boolValue(b bool) Value    { return Value{Type: ResultBoolean, Bool: b} }
func intValue(i int64) Value    { return Value{Type: ResultInteger, Int: i} }
func floatValue(f float64) Value { return Value{Type: ResultFloat, Float: f} }
func strValue(s string) Value   { return Value{Type: ResultString, Str: s} }
func voidValue() Value          { return Value{Type: ResultVoid} }
func nodeValue() Value          { return Value{Type: ResultNode} }

// NewBoolValue, NewIntValue, NewFloatValue and NewStringValue build Values
// from outside the package, for a [Target] implementation's ReadAuto.
func NewBoolValue(b bool) Value     { return boolValue(b) }
func NewIntValue(i int64) Value     { return intValue(i) }
func NewFloatValue(f float64) Value { return floatValue(f) }
func NewStringValue(s string) Value { return strValue(s) }

// AsBool coerces v to a boolean, failing for float/string/void/node values.
func (v Value) AsBool() (bool, error) {
	switch v.Type {
	case ResultBoolean:
		return v.Bool, nil
	case ResultInteger:
		return v.Int != 0, nil
	default:
		return false, fmt.Errorf("expr: cannot use %v value as boolean", v.Type)
	}
}

// AsInt coerces v to an integer.
func (v Value) AsInt() (int64, error) {
	switch v.Type {
	case ResultInteger:
		return v.Int, nil
	case ResultFloat:
		return int64(v.Float), nil
	case ResultBoolean:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expr: cannot use %v value as integer", v.Type)
	}
}

// AsFloat coerces v to a float.
func (v Value) AsFloat() (float64, error) {
	switch v.Type {
	case ResultFloat:
		return v.Float, nil
	case ResultInteger:
		return float64(v.Int), nil
	default:
		return 0, fmt.Errorf("expr: cannot use %v value as float", v.Type)
	}
}

// AsString coerces v to a string; only ResultString values qualify.
func (v Value) AsString() (string, error) {
	if v.Type != ResultString {
		return "", fmt.Errorf("expr: cannot use %v value as string", v.Type)
	}
	return v.Str, nil
}

func (rt ResultType) String() string {
	switch rt {
	case ResultBoolean:
		return "boolean"
	case ResultInteger:
		return "integer"
	case ResultFloat:
		return "float"
	case ResultString:
		return "string"
	case ResultVoid:
		return "void"
	case ResultNode:
		return "node"
	default:
		return "invalid"
	}
}
