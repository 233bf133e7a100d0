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
	"sort"

	"github.com/pfdgo/pfd/internal/expr"
	"github.com/timandy/routine"
)

// ProductVariable is a named, optionally-sized array of i64 associated
// with a product definition. SizeExpr computes its length once;
// InitExpr (void-valued) runs once against a root cursor to populate it.
type ProductVariable struct {
	Name     string
	SizeExpr *expr.Node // integer; nil means size 1
	InitExpr *expr.Node // void; nil means leave zeroed
}

// DetectionRuleEntry is one conjunct of a [DetectionRule]: an optional path
// existence check and/or an optional boolean expression. At least
// one of Path/Expression is set.
type DetectionRuleEntry struct {
	Path     *expr.Node // nil if this entry is expression-only
	PathText string     // the path's source text; used for trie prefix-splitting

	Expression *expr.Node // nil if this entry is path-only ("node exists")
}

// NewPathEntry parses path and returns the corresponding rule entry.
func NewPathEntry(path string) (DetectionRuleEntry, error) {
	n, err := expr.ParsePath(path)
	if err != nil {
		return DetectionRuleEntry{}, newError(DataDefinition, "invalid detection path %q: %v", path, err)
	}
	return DetectionRuleEntry{Path: n, PathText: path}, nil
}

// NewExpressionEntry wraps expression as a rule entry.
func NewExpressionEntry(expression *expr.Node) DetectionRuleEntry {
	return DetectionRuleEntry{Expression: expression}
}

// DetectionRule is a non-empty, ordered, all-must-match list of entries
// bound to exactly one [ProductDefinition].
type DetectionRule struct {
	Entries    []DetectionRuleEntry
	Definition *ProductDefinition
}

// ProductDefinition is the static product description: format, version,
// name, description, root type, product variables, and detection rules.
type ProductDefinition struct {
	Format          Format
	Version         int
	Name            string
	Description     string
	RootType        Type
	ProductVariables []ProductVariable
	DetectionRules  []DetectionRule
	Initialized     bool
}

// ProductType is a named set of versioned [ProductDefinition]s, unique by
// version.
type ProductType struct {
	Name        string
	Definitions map[int]*ProductDefinition
}

func newProductType(name string) *ProductType {
	return &ProductType{Name: name, Definitions: make(map[int]*ProductDefinition)}
}

// LatestVersion returns the highest version number registered, or -1 if
// the type has no definitions.
func (pt *ProductType) LatestVersion() int {
	best := -1
	for v := range pt.Definitions {
		if v > best {
			best = v
		}
	}
	return best
}

// ProductClass is a named set of [ProductType]s plus a pool of named
// [Type] values reusable across definitions.
type ProductClass struct {
	Name        string
	Revision    string
	SourcePath  string
	Types       map[string]*ProductType
	NamedTypes  map[string]Type
}

func newProductClass(name string) *ProductClass {
	return &ProductClass{Name: name, Types: make(map[string]*ProductType), NamedTypes: make(map[string]Type)}
}

// DataDictionary is the process-wide catalogue: product classes sorted
// by name, plus one detection tree per format family. It is an ordinary
// value a caller owns and passes to Open/Close — see [DefaultDictionary]
// for the thread-local convenience wrapper.
type DataDictionary struct {
	classNames []string
	classes    map[string]*ProductClass

	// trees holds one detection tree per format family: ascii and binary
	// share a tree (keyed by FormatBinary), every other format gets its
	// own.
	trees map[Format]*DetectionTree

	// envelopes holds, per format family, the root type detection rules
	// are evaluated against before any definition has been bound to the
	// product. Definitions sharing a detection tree are expected to share
	// a common top-level envelope layout (true of every CODA-style format
	// family observed: a fixed main/secondary header read ahead of the
	// type-specific body), so the first definition registered for a tree
	// supplies it.
	envelopes map[Format]Type
}

// NewDataDictionary returns an empty dictionary (the init()).
func NewDataDictionary() *DataDictionary {
	return &DataDictionary{
		classes:   make(map[string]*ProductClass),
		trees:     make(map[Format]*DetectionTree),
		envelopes: make(map[Format]Type),
	}
}

func (d *DataDictionary) treeKey(f Format) Format {
	if f == FormatAscii {
		return FormatBinary
	}
	return f
}

// AddProductClass inserts pc, failing on a duplicate name; classes are
// re-sorted and every detection rule in pc's definitions is folded into
// the appropriate format-family tree.
func (d *DataDictionary) AddProductClass(pc *ProductClass) error {
	if pc == nil {
		return newError(InvalidArgument, "product class is nil")
	}
	if _, exists := d.classes[pc.Name]; exists {
		return newError(DataDefinition, "duplicate product class name %q", pc.Name)
	}
	d.classes[pc.Name] = pc
	d.classNames = append(d.classNames, pc.Name)
	sort.Strings(d.classNames)

	for _, pt := range pc.Types {
		for _, def := range pt.Definitions {
			key := d.treeKey(def.Format)
			tree := d.trees[key]
			if tree == nil {
				tree = NewDetectionTree()
				d.trees[key] = tree
			}
			if _, ok := d.envelopes[key]; !ok && def.RootType != nil {
				d.envelopes[key] = def.RootType
			}
			for _, rule := range def.DetectionRules {
				if err := tree.AddRule(rule); err != nil {
					delete(d.classes, pc.Name)
					d.classNames = removeString(d.classNames, pc.Name)
					return err
				}
			}
		}
	}
	return nil
}

// RemoveProductClass removes the class named name and rebuilds every
// detection tree from scratch, since rules from the other classes still
// sharing a tree must be re-inserted.
func (d *DataDictionary) RemoveProductClass(name string) error {
	if _, exists := d.classes[name]; !exists {
		return newError(InvalidName, "no product class named %q", name)
	}
	delete(d.classes, name)
	d.classNames = removeString(d.classNames, name)

	d.trees = make(map[Format]*DetectionTree)
	d.envelopes = make(map[Format]Type)
	for _, pc := range d.classes {
		for _, pt := range pc.Types {
			for _, def := range pt.Definitions {
				key := d.treeKey(def.Format)
				tree := d.trees[key]
				if tree == nil {
					tree = NewDetectionTree()
					d.trees[key] = tree
				}
				if _, ok := d.envelopes[key]; !ok && def.RootType != nil {
					d.envelopes[key] = def.RootType
				}
				for _, rule := range def.DetectionRules {
					if err := tree.AddRule(rule); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// GetDefinition returns the definition for (class, typ, version), or the
// latest registered version when version == -1.
func (d *DataDictionary) GetDefinition(class, typ string, version int) (*ProductDefinition, error) {
	pc, ok := d.classes[class]
	if !ok {
		return nil, newError(InvalidName, "no product class named %q", class)
	}
	pt, ok := pc.Types[typ]
	if !ok {
		return nil, newError(InvalidName, "product class %q has no type %q", class, typ)
	}
	if version == -1 {
		version = pt.LatestVersion()
	}
	def, ok := pt.Definitions[version]
	if !ok {
		return nil, newError(InvalidName, "product type %q has no version %d", typ, version)
	}
	return def, nil
}

// FindDefinitionForProduct evaluates the detection tree for p's format
// family, starting from the family's registered envelope type rather than
// p.RootType (which is unset before a definition is bound).
func (d *DataDictionary) FindDefinitionForProduct(p *Product) (*ProductDefinition, error) {
	key := d.treeKey(p.Format)
	tree, ok := d.trees[key]
	if !ok {
		return nil, newError(UnsupportedProduct, "no detection tree registered for format %v", p.Format)
	}
	envelope, ok := d.envelopes[key]
	if !ok {
		return nil, newError(UnsupportedProduct, "no detection envelope type registered for format %v", p.Format)
	}
	cur := newDetectionCursor(p, envelope)
	return tree.Evaluate(cur)
}

var dictionaryStorage = routine.NewThreadLocalWithInitial(func() any { return NewDataDictionary() })

// DefaultDictionary returns the goroutine-local default [DataDictionary],
// creating it on first use. The dictionary is process-wide, per-goroutine
// state; sharing one across goroutines is not supported. Callers that want an explicit, shareable-by-construction
// dictionary should use [NewDataDictionary] directly instead.
func DefaultDictionary() *DataDictionary {
	return dictionaryStorage.Get().(*DataDictionary)
}
