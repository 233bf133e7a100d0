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

// Package pfd provides uniform, hierarchical, read-only access to
// structured scientific data products whose on-disk layout is described by
// a product format definition (a tree of [Type] values).
//
// A product is opened with [Open], which sniffs the file's format family,
// walks the [DataDictionary]'s detection tree to bind a [ProductDefinition],
// and returns a [Product]. Clients then navigate the product with a
// [Cursor]: a bounded stack of frames that computes bit offsets, array and
// record sizes, and field availability on demand, dispatching to a
// format-specific [Backend] for self-describing containers (HDF5, netCDF,
// CDF, GRIB, XML, RINEX, SP3) and computing offsets itself for ASCII and
// binary products.
//
// Sizes, offsets, optionality, array dimensions, and detection predicates
// are all computed by the small expression language in package
// github.com/pfdgo/pfd/internal/expr, evaluated against a cursor position.
//
// # Support status
//
// Only the core engine is implemented here: the type
// model, the cursor engine for ascii/binary products, the detection tree,
// the expression evaluator, and the data dictionary. Concrete readers for
// self-describing backends (HDF4, HDF5, netCDF, CDF, GRIB, XML, RINEX,
// SP3) are external collaborators; this package only defines the [Backend]
// interface they must satisfy.
package pfd
