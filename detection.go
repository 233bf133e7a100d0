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
	"strings"

	"github.com/pfdgo/pfd/internal/expr"
)

// detectionNode is one node of the detection trie. Exactly one of
// path/expression is set, except the root node where both are empty.
// Definition is set on the node whose ancestor chain spells out one full
// detection rule.
type detectionNode struct {
	path       *expr.Node
	pathText   string // original path source, used for attribute-sort and prefix-split
	expression *expr.Node

	definition *ProductDefinition
	ruleName   string // the definition name, recorded for the shadowing diagnostic

	subnodes []*detectionNode
}

// DetectionTree is the trie of detection rules across all product
// definitions sharing a format family.
type DetectionTree struct {
	root *detectionNode
}

// NewDetectionTree returns an empty tree.
func NewDetectionTree() *DetectionTree {
	return &DetectionTree{root: &detectionNode{}}
}

// AddRule inserts rule's entries, in order, descending or creating
// subnodes, and records rule.Definition on the final node. Returns a
// [DataDefinition] error naming the first rule's definition if the new
// rule's leaf is already claimed by an earlier rule ("shadowed by").
func (t *DetectionTree) AddRule(rule DetectionRule) error {
	if len(rule.Entries) == 0 {
		return newError(DataDefinition, "detection rule for %q has no entries", rule.Definition.Name)
	}
	node := t.root
	for _, entry := range rule.Entries {
		node = node.descendOrCreate(entry)
	}
	if node.definition != nil {
		return newError(DataDefinition, "detection rule for '%s' is shadowed by detection rule for '%s'", rule.Definition.Name, node.ruleName)
	}
	node.definition = rule.Definition
	node.ruleName = rule.Definition.Name
	return nil
}

func (n *detectionNode) descendOrCreate(entry DetectionRuleEntry) *detectionNode {
	if entry.Path != nil {
		return n.descendPath(entry.Path, entry.PathText)
	}
	for _, sub := range n.subnodes {
		if sub.expression != nil && expr.Equal(sub.expression, entry.Expression) {
			return sub
		}
	}
	sub := &detectionNode{expression: entry.Expression}
	n.insertOrdered(sub)
	return sub
}

// descendPath implements the path-prefix-splitting build rule: reuse a
// subnode on exact match, split a subnode on a common prefix, or create a
// fresh one. Paths are compared on their textual form (segment-wise)
// rather than structurally, since a common prefix of navigation steps is
// naturally expressed as a string prefix of the path source.
func (n *detectionNode) descendPath(path *expr.Node, text string) *detectionNode {
	for _, sub := range n.subnodes {
		if sub.path == nil {
			continue
		}
		if sub.pathText == text {
			return sub
		}
		prefix := commonSegmentPrefix(sub.pathText, text)
		if prefix == "" {
			continue
		}
		if prefix == sub.pathText {
			// sub's whole path is a prefix of the new one: descend,
			// inserting a new node for the remainder under it. The
			// remainder is relative to wherever matching sub's path
			// landed, so its leading '/' (if any) is dropped.
			return sub.addPathChild(remainderOf(text, prefix))
		}
		// Split sub into a common-prefix node and a remainder node
		// carrying sub's old children and definition.
		commonNode := &detectionNode{pathText: prefix}
		commonNode.path, _ = expr.ParsePath(prefix)
		oldRemainder := &detectionNode{
			subnodes:   sub.subnodes,
			definition: sub.definition,
			ruleName:   sub.ruleName,
		}
		oldRemainder.pathText = remainderOf(sub.pathText, prefix)
		oldRemainder.path, _ = expr.ParsePath(oldRemainder.pathText)
		commonNode.subnodes = []*detectionNode{oldRemainder}

		*sub = *commonNode
		return sub.addPathChild(remainderOf(text, prefix))
	}
	sub := &detectionNode{path: path, pathText: text}
	n.insertOrdered(sub)
	return sub
}

// addPathChild parses relText (already stripped of any shared leading
// segment) and appends it as a new path subnode.
func (n *detectionNode) addPathChild(relText string) *detectionNode {
	node, _ := expr.ParsePath(relText)
	child := &detectionNode{path: node, pathText: relText}
	n.subnodes = append(n.subnodes, child)
	return child
}

// remainderOf strips prefix from text and any leading '/' left behind, so
// the remainder is a path relative to wherever matching prefix landed the
// cursor rather than another root-anchored path.
func remainderOf(text, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(text, prefix), "/")
}

// insertOrdered keeps the subnode ordering: path subnodes before
// expression subnodes; among path subnodes, attribute paths (leading '@')
// sort after non-attribute paths.
func (n *detectionNode) insertOrdered(sub *detectionNode) {
	rank := func(s *detectionNode) int {
		switch {
		case s.path != nil && !strings.HasPrefix(s.pathText, "@"):
			return 0
		case s.path != nil:
			return 1
		default:
			return 2
		}
	}
	r := rank(sub)
	i := 0
	for i < len(n.subnodes) && rank(n.subnodes[i]) <= r {
		i++
	}
	n.subnodes = append(n.subnodes, nil)
	copy(n.subnodes[i+1:], n.subnodes[i:])
	n.subnodes[i] = sub
}

// commonSegmentPrefix returns the longest prefix of a and b that ends on a
// '/' boundary, so a split never cuts a path segment in half. An empty
// result means no shared segment at all.
func commonSegmentPrefix(a, b string) string {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	i := 0
	for i < n && as[i] == bs[i] {
		i++
	}
	if i == 0 {
		return ""
	}
	return strings.Join(as[:i], "/")
}

// Evaluate runs the tree against cur, positioned at the product root,
// returning the first matching leaf's definition.
func (t *DetectionTree) Evaluate(cur *Cursor) (*ProductDefinition, error) {
	def := evaluateNode(t.root, cur)
	if def == nil {
		return nil, newError(UnsupportedProduct, "no detection rule matched this product")
	}
	return def, nil
}

func evaluateNode(n *detectionNode, cur *Cursor) *ProductDefinition {
	for _, sub := range n.subnodes {
		probe := cur.clone()
		matched := false
		switch {
		case sub.path != nil:
			if _, err := expr.Eval(sub.path, probe); err == nil {
				matched = true
			}
		case sub.expression != nil:
			v, err := expr.Eval(sub.expression, probe)
			if err == nil {
				if b, berr := v.AsBool(); berr == nil && b {
					matched = true
				}
			}
		default:
			matched = true
		}
		if !matched {
			continue
		}
		if def := evaluateNode(sub, probe); def != nil {
			return def
		}
	}
	return n.definition
}
