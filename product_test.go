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

package pfd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pfdgo/pfd"
	"github.com/pfdgo/pfd/internal/expr"
)

// buildTestDictionary assembles one product class with three product types:
// "Test" (two binary definitions distinguished by a detection rule on their
// shared "magic" field), "VarTest" (a definition declaring a product
// variable whose size_expr evaluates to a negative number), and "ArrTest"
// (a definition whose root is a fixed-length array of bytes).
func buildTestDictionary(t *testing.T) (*pfd.DataDictionary, *pfd.RecordType) {
	t.Helper()

	root := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, root.AddField(pfd.Field{Name: "magic", BitOffset: -1, Type: mustUint8(t, pfd.FormatBinary)}))
	require.NoError(t, root.AddField(pfd.Field{Name: "value", BitOffset: -1, Type: mustInt16(t, pfd.FormatBinary)}))

	pathEntry, err := pfd.NewPathEntry("magic")
	require.NoError(t, err)

	// These are evaluated with the cursor already positioned on "magic" by
	// the preceding path entry, so they test the current leaf (".") rather
	// than re-navigating to it by name.
	exprA, err := expr.Parse(". == 171")
	require.NoError(t, err)
	exprB, err := expr.Parse(". == 205")
	require.NoError(t, err)

	defA := &pfd.ProductDefinition{Format: pfd.FormatBinary, Version: 1, Name: "TypeA", RootType: root}
	defA.DetectionRules = []pfd.DetectionRule{{
		Entries:    []pfd.DetectionRuleEntry{pathEntry, pfd.NewExpressionEntry(exprA)},
		Definition: defA,
	}}
	defB := &pfd.ProductDefinition{Format: pfd.FormatBinary, Version: 2, Name: "TypeB", RootType: root}
	defB.DetectionRules = []pfd.DetectionRule{{
		Entries:    []pfd.DetectionRuleEntry{pathEntry, pfd.NewExpressionEntry(exprB)},
		Definition: defB,
	}}

	negOne, err := expr.Parse("-1")
	require.NoError(t, err)
	defVar := &pfd.ProductDefinition{
		Format: pfd.FormatBinary, Version: 1, Name: "VarType", RootType: root,
		ProductVariables: []pfd.ProductVariable{{Name: "bad", SizeExpr: negOne}},
	}

	arrElem := mustUint8(t, pfd.FormatBinary)
	arrType, err := pfd.NewArrayType(pfd.FormatBinary, arrElem)
	require.NoError(t, err)
	require.NoError(t, arrType.AddDimension(4))
	arrRoot := pfd.NewRecordType(pfd.FormatBinary)
	require.NoError(t, arrRoot.AddField(pfd.Field{Name: "items", BitOffset: -1, Type: arrType}))
	defArr := &pfd.ProductDefinition{Format: pfd.FormatBinary, Version: 1, Name: "ArrType", RootType: arrRoot}

	pc := &pfd.ProductClass{
		Name: "TestClass",
		Types: map[string]*pfd.ProductType{
			"Test":    {Name: "Test", Definitions: map[int]*pfd.ProductDefinition{1: defA, 2: defB}},
			"VarTest": {Name: "VarTest", Definitions: map[int]*pfd.ProductDefinition{1: defVar}},
			"ArrTest": {Name: "ArrTest", Definitions: map[int]*pfd.ProductDefinition{1: defArr}},
		},
		NamedTypes: map[string]pfd.Type{},
	}

	dict := pfd.NewDataDictionary()
	require.NoError(t, dict.AddProductClass(pc))
	return dict, root
}

func writeProduct(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenDetectsAndBindsDefinition(t *testing.T) {
	t.Parallel()

	dict, _ := buildTestDictionary(t)
	dir := t.TempDir()
	pathA := writeProduct(t, dir, "a.bin", []byte{0xAB, 0x00, 0x05})
	pathB := writeProduct(t, dir, "b.bin", []byte{0xCD, 0x00, 0x0A})

	pA, err := pfd.Open(pathA, pfd.DefaultOptions(), dict)
	require.NoError(t, err)
	defer pA.Close()
	require.Equal(t, "TypeA", pA.Definition.Name)
	require.Equal(t, "TypeA", pA.ClassName)

	curA, err := pfd.NewCursor(pA)
	require.NoError(t, err)
	require.NoError(t, curA.GotoRecordFieldByIndex(0))
	magic, err := curA.ReadInt()
	require.NoError(t, err)
	require.EqualValues(t, 171, magic)
	require.NoError(t, curA.GotoParent())
	require.NoError(t, curA.GotoRecordFieldByName("value"))
	val, err := curA.ReadInt()
	require.NoError(t, err)
	require.EqualValues(t, 5, val)

	pB, err := pfd.Open(pathB, pfd.DefaultOptions(), dict)
	require.NoError(t, err)
	defer pB.Close()
	require.Equal(t, "TypeB", pB.Definition.Name)

	curB, err := pfd.NewCursor(pB)
	require.NoError(t, err)
	require.NoError(t, curB.GotoRecordFieldByName("value"))
	val, err = curB.ReadInt()
	require.NoError(t, err)
	require.EqualValues(t, 10, val)
}

func TestOpenAsBypassesDetection(t *testing.T) {
	t.Parallel()

	dict, _ := buildTestDictionary(t)
	dir := t.TempDir()
	path := writeProduct(t, dir, "a.bin", []byte{0xAB, 0x00, 0x05})

	p, err := pfd.OpenAs(path, "TestClass", "Test", 1, pfd.DefaultOptions(), dict)
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, "TypeA", p.Definition.Name)
}

func TestRecognizeFile(t *testing.T) {
	t.Parallel()

	dict, _ := buildTestDictionary(t)
	dir := t.TempDir()
	path := writeProduct(t, dir, "a.bin", []byte{0xAB, 0x00, 0x05})

	res, err := pfd.RecognizeFile(path, dict)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, "TypeA", res.Type)
	require.Equal(t, 1, res.Version)
	require.EqualValues(t, 3, res.FileSize)
	require.Equal(t, pfd.FormatBinary, res.Format)
}

func TestProductVariableNegativeSizeIsAProductError(t *testing.T) {
	t.Parallel()

	dict, _ := buildTestDictionary(t)
	dir := t.TempDir()
	path := writeProduct(t, dir, "a.bin", []byte{0xAB, 0x00, 0x05})

	p, err := pfd.OpenAs(path, "TestClass", "VarTest", 1, pfd.DefaultOptions(), dict)
	require.NoError(t, err)
	defer p.Close()

	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)
	_, err = cur.VariableValue("bad", 0)
	require.Error(t, err)
	kind, ok := pfd.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pfd.Product, kind)
}

func TestArrayNavigationFixedDimFastPath(t *testing.T) {
	t.Parallel()

	dict, _ := buildTestDictionary(t)
	dir := t.TempDir()
	path := writeProduct(t, dir, "arr.bin", []byte{10, 20, 30, 40})

	p, err := pfd.OpenAs(path, "TestClass", "ArrTest", 1, pfd.DefaultOptions(), dict)
	require.NoError(t, err)
	defer p.Close()

	cur, err := pfd.NewCursor(p)
	require.NoError(t, err)
	require.NoError(t, cur.GotoRecordFieldByIndex(0))

	n, err := cur.GetNumElements()
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	require.NoError(t, cur.GotoArrayElementByIndex(2))
	v, err := cur.ReadInt()
	require.NoError(t, err)
	require.EqualValues(t, 30, v)
}

func TestCloseReleasesFile(t *testing.T) {
	t.Parallel()

	dict, _ := buildTestDictionary(t)
	dir := t.TempDir()
	path := writeProduct(t, dir, "a.bin", []byte{0xAB, 0x00, 0x05})

	p, err := pfd.Open(path, pfd.DefaultOptions(), dict)
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
