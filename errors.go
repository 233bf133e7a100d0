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
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the class of failure reported by an [Error]. It mirrors
// the single error enum of the core: every operation in this package
// returns either nil or an *Error whose Kind is one of these.
type Kind int

const (
	// InvalidArgument covers a nil argument or an out-of-domain value.
	InvalidArgument Kind = iota
	// InvalidIndex covers a field or array index out of range.
	InvalidIndex
	// InvalidType covers an operation called on a type class that does not
	// support it, e.g. goto_next_record_field on an array.
	InvalidType
	// InvalidName covers an unknown field or product variable name.
	InvalidName
	// NoParent covers goto_parent called at the cursor root.
	NoParent
	// ArrayOutOfBounds covers a subscript outside its dimension.
	ArrayOutOfBounds
	// ArrayNumDimsMismatch covers a goto with the wrong number of subscripts.
	ArrayNumDimsMismatch
	// DataDefinition covers a construction-time constraint violation: a
	// duplicate name, a malformed type, or a shadowed detection rule.
	DataDefinition
	// OutOfMemory covers an allocation failure.
	OutOfMemory
	// FileOpen covers a failure to open or map the product file.
	FileOpen
	// FileRead covers a failure to read from an already-open product file.
	FileRead
	// FileNotFound covers a missing product file.
	FileNotFound
	// Product covers data in the product that is inconsistent with its
	// definition: an out-of-range union selector, a negative computed
	// array size, and so on. The diagnostic includes the byte:bit offset
	// of the offending cursor position when one is known.
	Product
	// NoHdf4Support covers a request for a compile-time-absent backend.
	NoHdf4Support
	// NoHdf5Support covers a request for a compile-time-absent backend.
	NoHdf5Support
	// UnsupportedProduct covers a product whose format or definition this
	// build cannot handle at all.
	UnsupportedProduct
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case InvalidIndex:
		return "invalid index"
	case InvalidType:
		return "invalid type"
	case InvalidName:
		return "invalid name"
	case NoParent:
		return "no parent"
	case ArrayOutOfBounds:
		return "array out of bounds"
	case ArrayNumDimsMismatch:
		return "array num dims mismatch"
	case DataDefinition:
		return "data definition error"
	case OutOfMemory:
		return "out of memory"
	case FileOpen:
		return "file open error"
	case FileRead:
		return "file read error"
	case FileNotFound:
		return "file not found"
	case Product:
		return "product error"
	case NoHdf4Support:
		return "no HDF4 support"
	case NoHdf5Support:
		return "no HDF5 support"
	case UnsupportedProduct:
		return "unsupported product"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// Error is the single error type returned by every operation in this
// package. It carries a [Kind], an optional path describing the cursor
// position at which the failure occurred (best-effort, folded into Message
// by addPath), and an optional byte:bit offset for [Product] errors.
type Error struct {
	Kind    Kind
	Message string

	// Offset is the absolute bit offset of the cursor position at which a
	// [Product] error was diagnosed, or -1 if not applicable.
	Offset int64

	cause error
}

// newError builds a leaf *Error with the given kind and formatted message.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: -1, cause: nil}
}

// productError builds a [Product] error tagged with a bit offset, matching
// the original's convention of reporting the byte:bit position of the
// offending cursor position.
func productError(bitOffset int64, format string, args ...any) *Error {
	e := newError(Product, format, args...)
	e.Offset = bitOffset
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("pfd: %s: %s (at byte %d:%d)", e.Kind, e.Message, e.Offset/8, e.Offset%8)
	}
	return fmt.Sprintf("pfd: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, so callers can use
// errors.Is/errors.As against it.
func (e *Error) Unwrap() error {
	return e.cause
}

// addPath implements the "add_to_error_message" facility of the error
// handling design: nested evaluator or cursor failures are re-wrapped with
// additional positional context as they propagate up, without discarding
// the original cause. This is the one place this package leans on
// github.com/pkg/errors: Wrapf preserves e as the Cause() while building a
// new message, which is exactly the nested-context behaviour the original
// gets from manual string concatenation in coda_add_to_error_message.
func addPath(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		wrapped := errors.Wrapf(err, format, args...)
		return &Error{Kind: pe.Kind, Message: wrapped.Error(), Offset: pe.Offset, cause: err}
	}
	return errors.Wrapf(err, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, and false when
// err contains no *Error.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
