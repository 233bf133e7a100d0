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
	"github.com/google/uuid"

	"github.com/pfdgo/pfd/internal/expr"
)

// Product is the open handle: file path, file size, format, the dynamic
// root type currently bound (either an ascii/binary type from a recognized
// definition or a backend-supplied one), the definition it was recognized
// or forced against, and lazily-initialised product-variable storage.
//
// Session holds a random session handle, assigned afresh by every Open and
// OpenAs, so that repeated opens of the same path are distinguishable. This
// package does not log it or add it to error messages.
type Product struct {
	Path     string
	FileSize int64
	Format   Format
	RootType Type

	ClassName  string
	Definition *ProductDefinition

	Backend Backend
	Session uuid.UUID

	options Options
	file    *openedFile

	variables map[string]*productVariableStorage
}

// productVariableStorage is one ProductVariable's lazily-allocated i64
// array: nil Values means uninitialised (the "NULL storage" invariant).
type productVariableStorage struct {
	def    *ProductVariable
	Values []int64
}

// Open stats path, maps or buffers its contents per opts, sniffs its
// format, and runs dict's detection tree against it. If detection
// succeeds the returned Product's RootType is rebound to the matched
// definition's root type and its product variables' storage is allocated
// (not yet initialised). A binary/ascii product that matches no rule is a
// [Kind] == [UnsupportedProduct] error; self-describing formats without a
// registered [Backend] in this build fail with [NoHdf4Support] /
// [NoHdf5Support] / [UnsupportedProduct] as appropriate.
func Open(path string, opts Options, dict *DataDictionary) (*Product, error) {
	of, size, err := openProductFile(path, opts)
	if err != nil {
		return nil, err
	}

	head := of.data
	if len(head) > DetectionBlockSize {
		head = head[:DetectionBlockSize]
	}
	format := sniffFormat(head)

	p := &Product{
		Path:      path,
		FileSize:  size,
		Format:    format,
		options:   opts,
		file:      of,
		Session:   uuid.New(),
		variables: make(map[string]*productVariableStorage),
	}

	backend, err := backendFor(format)
	if err != nil {
		of.Close()
		return nil, err
	}
	p.Backend = backend

	if backend != nil {
		root, err := backend.RootType(of.data)
		if err != nil {
			of.Close()
			return nil, addPath(err, "opening %q", path)
		}
		p.RootType = root
	}

	def, err := dict.FindDefinitionForProduct(p)
	if err != nil {
		if format == FormatAscii || format == FormatBinary {
			of.Close()
			return nil, addPath(err, "opening %q", path)
		}
		// A self-describing product with no matching definition still
		// opens successfully: its root_type came from the backend, not a
		// definition (only binary/ascii products require a
		// definition match).
		return p, nil
	}
	if err := p.bindDefinition(def); err != nil {
		of.Close()
		return nil, addPath(err, "opening %q", path)
	}
	return p, nil
}

// OpenAs bypasses detection and binds product directly to the definition
// named by (class, typ, version) (-1 for latest). The chosen
// definition's format must match the file's detected format, or be
// explicitly ascii/binary, in which case the file is treated as a raw
// binary blob regardless of what sniffFormat reported.
func OpenAs(path, class, typ string, version int, opts Options, dict *DataDictionary) (*Product, error) {
	def, err := dict.GetDefinition(class, typ, version)
	if err != nil {
		return nil, err
	}

	of, size, err := openProductFile(path, opts)
	if err != nil {
		return nil, err
	}

	format := def.Format
	if format != FormatAscii && format != FormatBinary {
		head := of.data
		if len(head) > DetectionBlockSize {
			head = head[:DetectionBlockSize]
		}
		if sniffed := sniffFormat(head); sniffed != format {
			of.Close()
			return nil, newError(UnsupportedProduct, "definition %q/%q/%d is format %v, product %q is %v", class, typ, version, format, path, sniffed)
		}
	}

	p := &Product{
		Path:      path,
		FileSize:  size,
		Format:    format,
		options:   opts,
		file:      of,
		Session:   uuid.New(),
		variables: make(map[string]*productVariableStorage),
	}

	if format != FormatAscii && format != FormatBinary {
		backend, err := backendFor(format)
		if err != nil {
			of.Close()
			return nil, err
		}
		p.Backend = backend
		if backend != nil {
			root, err := backend.RootType(of.data)
			if err != nil {
				of.Close()
				return nil, addPath(err, "opening %q", path)
			}
			p.RootType = root
		}
	}

	if err := p.bindDefinition(def); err != nil {
		of.Close()
		return nil, addPath(err, "opening %q", path)
	}
	return p, nil
}

// bindDefinition rebinds p's root type to def's and allocates (but does not
// initialise) storage for every product variable def declares.
func (p *Product) bindDefinition(def *ProductDefinition) error {
	p.Definition = def
	p.ClassName = def.Name
	if def.RootType != nil {
		p.RootType = def.RootType
	}
	for i := range def.ProductVariables {
		v := &def.ProductVariables[i]
		p.variables[v.Name] = &productVariableStorage{def: v}
	}
	return nil
}

// Close releases the product's file mapping or buffer and its variable
// storage. A Product must not be used after Close returns.
func (p *Product) Close() error {
	p.variables = nil
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// RecognizeResult is recognize_file's answer: a product's format and, when
// a definition could be matched without keeping the file open, its class,
// type and version.
type RecognizeResult struct {
	FileSize int64
	Format   Format
	Class    string
	Type     string
	Version  int
	Matched  bool
}

// RecognizeFile reports path's size, format and (if detectable) bound
// product definition without leaving a Product open.
func RecognizeFile(path string, dict *DataDictionary) (RecognizeResult, error) {
	p, err := Open(path, DefaultOptions(), dict)
	if err != nil {
		if kind, ok := KindOf(err); ok && (kind == UnsupportedProduct || kind == NoHdf4Support || kind == NoHdf5Support) {
			// A product whose format was still detectable but whose
			// definition couldn't be matched, or whose self-describing
			// backend isn't built into this binary, still has a size and
			// a sniffed format; re-derive both without opening fully.
			of, size, oerr := openProductFile(path, DefaultOptions())
			if oerr != nil {
				return RecognizeResult{}, oerr
			}
			head := of.data
			if len(head) > DetectionBlockSize {
				head = head[:DetectionBlockSize]
			}
			format := sniffFormat(head)
			of.Close()
			return RecognizeResult{FileSize: size, Format: format}, nil
		}
		return RecognizeResult{}, err
	}
	defer p.Close()

	res := RecognizeResult{FileSize: p.FileSize, Format: p.Format}
	if p.Definition != nil {
		res.Matched = true
		res.Class = p.ClassName
		res.Type = p.Definition.Name
		res.Version = p.Definition.Version
	}
	return res, nil
}

// backendFor returns the [Backend] implementation for a self-describing
// format, or nil for ascii/binary (which the cursor engine implements
// itself and never dispatches to a Backend for). This build carries no
// concrete HDF4/HDF5/netCDF/CDF/GRIB/XML/RINEX/SP3 backend implementation,
// so every self-describing format reports the appropriate "not built"
// error rather than silently behaving like binary.
func backendFor(format Format) (Backend, error) {
	switch format {
	case FormatAscii, FormatBinary:
		return nil, nil
	case FormatHDF4:
		return nil, newError(NoHdf4Support, "this build has no HDF4 backend")
	case FormatHDF5:
		return nil, newError(NoHdf5Support, "this build has no HDF5 backend")
	default:
		return nil, newError(UnsupportedProduct, "this build has no %v backend", format)
	}
}

// variableIndex finds name's declared variable, returning its stable index
// within the product's variable set (insertion order of its Definition's
// ProductVariables) alongside ok.
func (p *Product) variableIndex(name string) (int, bool) {
	if p.Definition == nil {
		return 0, false
	}
	for i, v := range p.Definition.ProductVariables {
		if v.Name == name {
			return i, true
		}
	}
	return 0, false
}

// variableStorage returns name's backing array, running its InitExpr the
// first time it is requested (a variable is either entirely
// uninitialised or fully initialised).
func (p *Product) variableStorage(name string) ([]int64, error) {
	vs, ok := p.variables[name]
	if !ok {
		return nil, newError(InvalidName, "no product variable named %q", name)
	}
	if vs.Values == nil {
		if err := p.initVariable(vs); err != nil {
			return nil, err
		}
	}
	return vs.Values, nil
}

// initVariable computes a variable's size_expr (default 1), allocates its
// storage, and evaluates init_expr against the product's root for side
// effects. A negative size_expr result is data inconsistent with the
// definition, not a programming error, so it is reported as a [Product]
// error rather than a panic (original_source/libcoda/coda-definition.c).
func (p *Product) initVariable(vs *productVariableStorage) error {
	size := int64(1)
	if vs.def.SizeExpr != nil {
		cur, err := NewCursor(p)
		if err != nil {
			return err
		}
		v, err := expr.Eval(vs.def.SizeExpr, cur)
		if err != nil {
			return addPath(err, "computing size of product variable %q", vs.def.Name)
		}
		size, err = v.AsInt()
		if err != nil {
			return addPath(err, "computing size of product variable %q", vs.def.Name)
		}
		if size < 0 {
			return productError(-1, "product variable %q has negative size %d", vs.def.Name, size)
		}
	}
	vs.Values = make([]int64, size)

	if vs.def.InitExpr != nil {
		cur, err := NewCursor(p)
		if err != nil {
			return err
		}
		if _, err := expr.Eval(vs.def.InitExpr, cur); err != nil {
			return addPath(err, "initializing product variable %q", vs.def.Name)
		}
	}
	return nil
}

// variableValue reads element index of name's storage, initialising it on
// first use.
func (p *Product) variableValue(name string, index int64) (int64, error) {
	storage, err := p.variableStorage(name)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= int64(len(storage)) {
		return 0, newError(ArrayOutOfBounds, "product variable %q index %d out of bounds (size %d)", name, index, len(storage))
	}
	return storage[index], nil
}

// variableSet assigns element index of name's storage, used by the
// expression evaluator's assignment nodes when running an init_expr.
func (p *Product) variableSet(name string, index int64, value int64) error {
	storage, err := p.variableStorage(name)
	if err != nil {
		return err
	}
	if index < 0 || index >= int64(len(storage)) {
		return newError(ArrayOutOfBounds, "product variable %q index %d out of bounds (size %d)", name, index, len(storage))
	}
	storage[index] = value
	return nil
}

// VariableSize reports the number of elements of the named product
// variable, initialising its storage on first use. The size is stable for
// the lifetime of the open product.
func (p *Product) VariableSize(name string) (int64, error) {
	storage, err := p.variableStorage(name)
	if err != nil {
		return 0, err
	}
	return int64(len(storage)), nil
}

// VariableValue reads element index of the named product variable.
func (p *Product) VariableValue(name string, index int64) (int64, error) {
	return p.variableValue(name, index)
}

// VariableSet assigns element index of the named product variable.
func (p *Product) VariableSet(name string, index, value int64) error {
	return p.variableSet(name, index, value)
}
