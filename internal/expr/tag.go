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

// Package expr implements the small, pure, typed expression language used
// throughout a product format definition to compute sizes, offsets,
// availability, array dimensions, and detection predicates. An [Node] is evaluated against a [Target], the minimal cursor
// surface the evaluator needs; package pfd's Cursor implements it.
package expr

// Tag identifies the operation an AST [Node] performs. It is the "tag" of
// the "(tag, result_type, is_constant, identifier?, operand[0..3])" node
// shape described by the design.
type Tag int

const (
	TagInvalid Tag = iota

	// Arithmetic.
	TagAdd
	TagSubtract
	TagMultiply
	TagDivide
	TagModulo
	TagPower
	TagAbs
	TagNeg
	TagCeil
	TagFloor
	TagRound
	TagMin
	TagMax

	// Comparison and logic.
	TagEqual
	TagNotEqual
	TagLess
	TagLessEqual
	TagGreater
	TagGreaterEqual
	TagAnd
	TagOr
	TagNot
	TagLogicalAnd
	TagLogicalOr

	// Control.
	TagIf
	TagFor
	TagWith
	TagSequence

	// Cursor navigation.
	TagGotoRoot
	TagGotoParent
	TagGotoField
	TagGotoArrayElement
	TagGotoAttribute
	TagGotoHere
	TagGotoBegin
	TagGoto
	TagAt

	// Reflection.
	TagExists
	TagNumElements
	TagNumDims
	TagDim
	TagBitSize
	TagByteSize
	TagBitOffset
	TagByteOffset
	TagFileSize
	TagFilename
	TagProductClass
	TagProductType
	TagProductVersion
	TagProductFormat
	TagIndex

	// Aggregation over arrays.
	TagArrayAdd
	TagArrayMin
	TagArrayMax
	TagArrayCount
	TagArrayAll
	TagArrayExists
	TagArrayIndex

	// Strings.
	TagString
	TagStrTime
	TagSubstr
	TagLTrim
	TagRTrim
	TagTrim
	TagLength
	TagRegex
	TagBytes

	// Numeric conversion.
	TagInteger
	TagFloat
	TagTime

	// Floating-point predicates.
	TagIsNaN
	TagIsInf
	TagIsPlusInf
	TagIsMinInf

	// Product variables.
	TagVariableExists
	TagVariableValue
	TagVariableSet
	TagVariableIndex

	// Constants.
	TagConstantBoolean
	TagConstantInteger
	TagConstantFloat
	TagConstantString
	TagConstantRawString

	// Asciilines.
	TagAsciiLine

	// TagIdent is not an operation of the language; it is the parser's representation
	// of a bare identifier argument (a for/with loop variable name, or a
	// product-variable name) passed positionally in an operand slot
	// instead of being evaluated as a sub-expression.
	TagIdent
)

var tagNames = map[Tag]string{
	TagAdd: "add", TagSubtract: "subtract", TagMultiply: "multiply", TagDivide: "divide",
	TagModulo: "modulo", TagPower: "power", TagAbs: "abs", TagNeg: "neg", TagCeil: "ceil",
	TagFloor: "floor", TagRound: "round", TagMin: "min", TagMax: "max",
	TagEqual: "equal", TagNotEqual: "not_equal", TagLess: "less", TagLessEqual: "less_equal",
	TagGreater: "greater", TagGreaterEqual: "greater_equal", TagAnd: "and", TagOr: "or",
	TagNot: "not", TagLogicalAnd: "logical_and", TagLogicalOr: "logical_or",
	TagIf: "if", TagFor: "for", TagWith: "with", TagSequence: "sequence",
	TagGotoRoot: "goto_root", TagGotoParent: "goto_parent", TagGotoField: "goto_field",
	TagGotoArrayElement: "goto_array_element", TagGotoAttribute: "goto_attribute",
	TagGotoHere: "goto_here", TagGotoBegin: "goto_begin", TagGoto: "goto", TagAt: "at",
	TagExists: "exists", TagNumElements: "num_elements", TagNumDims: "num_dims", TagDim: "dim",
	TagBitSize: "bit_size", TagByteSize: "byte_size", TagBitOffset: "bit_offset",
	TagByteOffset: "byte_offset", TagFileSize: "file_size", TagFilename: "filename",
	TagProductClass: "product_class", TagProductType: "product_type",
	TagProductVersion: "product_version", TagProductFormat: "product_format", TagIndex: "index",
	TagArrayAdd: "array_add", TagArrayMin: "array_min", TagArrayMax: "array_max",
	TagArrayCount: "array_count", TagArrayAll: "array_all", TagArrayExists: "array_exists",
	TagArrayIndex: "array_index",
	TagString:     "string", TagStrTime: "strtime", TagSubstr: "substr", TagLTrim: "ltrim",
	TagRTrim: "rtrim", TagTrim: "trim", TagLength: "length", TagRegex: "regex", TagBytes: "bytes",
	TagInteger: "integer", TagFloat: "float", TagTime: "time",
	TagIsNaN: "isnan", TagIsInf: "isinf", TagIsPlusInf: "isplusinf", TagIsMinInf: "ismininf",
	TagVariableExists: "variable_exists", TagVariableValue: "variable_value",
	TagVariableSet: "variable_set", TagVariableIndex: "variable_index",
	TagConstantBoolean: "constant_boolean", TagConstantInteger: "constant_integer",
	TagConstantFloat: "constant_float", TagConstantString: "constant_string",
	TagConstantRawString: "constant_rawstring", TagAsciiLine: "asciiline", TagIdent: "ident",
}

// String implements fmt.Stringer, used by error messages and test output.
func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return "unknown"
}

// ResultType is the static type an [Node] evaluates to.
type ResultType int

const (
	ResultInvalid ResultType = iota
	ResultBoolean
	ResultInteger
	ResultFloat
	ResultString
	ResultVoid
	// ResultNode marks an expression whose purpose is a cursor move
	// (goto_* and friends): it carries no scalar value, only success or
	// failure of the navigation.
	ResultNode
)

// funcArity describes how the textual parser turns a `name(args...)` call
// into a Node: the Tag it produces, its result type, and whether its
// leading argument is a bare identifier (a for/with bound variable, or a
// product-variable name) rather than a sub-expression.
type funcArity struct {
	tag         Tag
	result      ResultType
	identArg0   bool
	minArgs     int
	maxArgs     int
}

// functionTable maps the textual name used in a PFD expression to its Tag
// and arity. Binary/unary operators (+, -, ==, ...) are handled directly by
// the parser's precedence climbing and do not appear here.
var functionTable = map[string]funcArity{
	"if":       {TagIf, ResultInvalid, false, 3, 3},
	"for":      {TagFor, ResultVoid, true, 4, 4},
	"with":     {TagWith, ResultInvalid, true, 3, 3},
	"sequence": {TagSequence, ResultInvalid, false, 2, 2},

	"min": {TagMin, ResultInvalid, false, 2, 2},
	"max": {TagMax, ResultInvalid, false, 2, 2},
	"abs": {TagAbs, ResultInvalid, false, 1, 1},

	"ceil":  {TagCeil, ResultInteger, false, 1, 1},
	"floor": {TagFloor, ResultInteger, false, 1, 1},
	"round": {TagRound, ResultInteger, false, 1, 1},

	"goto_root":          {TagGotoRoot, ResultNode, false, 0, 0},
	"goto_parent":        {TagGotoParent, ResultNode, false, 0, 0},
	"goto_field":         {TagGotoField, ResultNode, true, 1, 1},
	"goto_array_element": {TagGotoArrayElement, ResultNode, false, 1, 1},
	"goto_attribute":     {TagGotoAttribute, ResultNode, true, 1, 1},
	"goto_here":          {TagGotoHere, ResultNode, false, 0, 0},
	"goto_begin":         {TagGotoBegin, ResultNode, false, 0, 0},
	"goto":               {TagGoto, ResultNode, false, 1, 1},
	"at":                 {TagAt, ResultInvalid, false, 2, 2},

	"exists":       {TagExists, ResultBoolean, false, 1, 1},
	"num_elements": {TagNumElements, ResultInteger, false, 0, 0},
	"num_dims":     {TagNumDims, ResultInteger, false, 0, 0},
	"dim":          {TagDim, ResultInteger, false, 1, 1},
	"bit_size":     {TagBitSize, ResultInteger, false, 0, 0},
	"byte_size":    {TagByteSize, ResultInteger, false, 0, 0},
	"bit_offset":   {TagBitOffset, ResultInteger, false, 0, 0},
	"byte_offset":  {TagByteOffset, ResultInteger, false, 0, 0},
	"file_size":    {TagFileSize, ResultInteger, false, 0, 0},
	"filename":     {TagFilename, ResultString, false, 0, 0},

	"product_class":   {TagProductClass, ResultString, false, 0, 0},
	"product_type":    {TagProductType, ResultString, false, 0, 0},
	"product_version": {TagProductVersion, ResultInteger, false, 0, 0},
	"product_format":  {TagProductFormat, ResultString, false, 0, 0},
	"index":           {TagIndex, ResultInteger, false, 0, 0},

	"array_add":    {TagArrayAdd, ResultInvalid, false, 1, 1},
	"array_min":    {TagArrayMin, ResultInvalid, false, 1, 1},
	"array_max":    {TagArrayMax, ResultInvalid, false, 1, 1},
	"array_count":  {TagArrayCount, ResultInteger, false, 1, 1},
	"array_all":    {TagArrayAll, ResultBoolean, false, 1, 1},
	"array_exists": {TagArrayExists, ResultBoolean, false, 1, 1},
	"array_index":  {TagArrayIndex, ResultInteger, false, 1, 1},

	"string":  {TagString, ResultString, false, 1, 2},
	"strtime": {TagStrTime, ResultString, false, 1, 2},
	"substr":  {TagSubstr, ResultString, false, 3, 3},
	"ltrim":   {TagLTrim, ResultString, false, 1, 1},
	"rtrim":   {TagRTrim, ResultString, false, 1, 1},
	"trim":    {TagTrim, ResultString, false, 1, 1},
	"length":  {TagLength, ResultInteger, false, 1, 1},
	"regex":   {TagRegex, ResultBoolean, false, 2, 2},
	"bytes":   {TagBytes, ResultString, false, 1, 1},

	"integer": {TagInteger, ResultInteger, false, 1, 1},
	"float":   {TagFloat, ResultFloat, false, 1, 1},
	"time":    {TagTime, ResultFloat, false, 1, 1},

	"isnan":     {TagIsNaN, ResultBoolean, false, 1, 1},
	"isinf":     {TagIsInf, ResultBoolean, false, 1, 1},
	"isplusinf": {TagIsPlusInf, ResultBoolean, false, 1, 1},
	"ismininf":  {TagIsMinInf, ResultBoolean, false, 1, 1},

	"variable_exists": {TagVariableExists, ResultBoolean, true, 1, 1},
	"variable_value":  {TagVariableValue, ResultInteger, true, 1, 2},
	"variable_set":    {TagVariableSet, ResultVoid, true, 2, 3},
	"variable_index":  {TagVariableIndex, ResultInteger, true, 2, 2},

	"asciiline": {TagAsciiLine, ResultString, false, 0, 1},
}
