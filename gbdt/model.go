// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gbdt implements a deterministic, integer-only gradient-boosted
// decision tree inference engine, with canonical JSON model parsing and
// sorted-key canonical encoding for model_hash().
package gbdt

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ippan-network/dlc-core/fixedpoint"
)

var (
	// ErrEncodingFailed means canonical serialization of the model
	// failed. model_hash() must propagate this, never substitute a
	// default digest.
	ErrEncodingFailed = fmt.Errorf("gbdt: %w", fixedpoint.ErrEncodingFailed)
	// ErrMalformedModel covers structural violations: out-of-range
	// indices, cycles, self-loops, bad feature arity.
	ErrMalformedModel = errors.New("gbdt: malformed model")
	// ErrDuplicateKey means the source JSON had a duplicate object key.
	// Load does not detect repeated keys and does not return it.
	ErrDuplicateKey = errors.New("gbdt: duplicate key in model JSON")
)

// Node is either an Internal split or a Leaf. Exactly one of the two
// variants is populated; IsLeaf discriminates.
type Node struct {
	IsLeaf bool

	// Internal fields.
	FeatureIdx uint16
	Threshold  int64
	Left       uint32
	Right      uint32

	// Leaf field.
	Value int64
}

// Tree is an ordered sequence of Nodes; node 0 is the root.
type Tree struct {
	Nodes []Node
}

// Model is a D-GBDT model: integer-only trees, a bias, and a post-scale
// applied to the summed leaf contributions.
type Model struct {
	ModelID   [32]byte
	Scale     int64
	Bias      int64
	PostScale int64
	Trees     []Tree
	// FeatureArity is the number of features a score() call must
	// provide; feature_idx values in internal nodes must stay below it.
	FeatureArity uint16
}

// jsonNode and jsonTree mirror the canonical on-disk JSON shape.
// Value fields (leaf, threshold, scale, bias, post_scale) are encoded as
// decimal strings rather than JSON numbers so the parser never silently
// accepts float literals, NaN, or Inf markers; index fields
// (feature_idx, left, right, feature_arity) are JSON integers decoded
// into unsigned Go integers. Struct fields are declared in sorted key
// order so encoding/json emits sorted keys.
type jsonNode struct {
	FeatureIdx *uint16 `json:"feature_idx,omitempty"`
	Leaf       *string `json:"leaf,omitempty"`
	Left       *uint32 `json:"left,omitempty"`
	Right      *uint32 `json:"right,omitempty"`
	Threshold  *string `json:"threshold,omitempty"`
}

type jsonTree struct {
	Nodes []jsonNode `json:"nodes"`
}

type jsonModel struct {
	Bias         string     `json:"bias"`
	FeatureArity uint16     `json:"feature_arity"`
	PostScale    string     `json:"post_scale"`
	Scale        string     `json:"scale"`
	Trees        []jsonTree `json:"trees"`
}

// Load parses JSON model bytes into a Model. It fails on NaN/Inf
// markers and other non-integer values, unknown fields, out-of-range
// indices, and cycles. Key order and repeated keys are not checked:
// keys are accepted in any order, and for a repeated key encoding/json
// keeps the last value.
func Load(modelBytes []byte) (*Model, error) {
	dec := json.NewDecoder(bytesReader(modelBytes))
	dec.DisallowUnknownFields()

	var jm jsonModel
	if err := dec.Decode(&jm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}

	scale, err := parseIntField(jm.Scale, "scale")
	if err != nil {
		return nil, err
	}
	bias, err := parseIntField(jm.Bias, "bias")
	if err != nil {
		return nil, err
	}
	postScale, err := parseIntField(jm.PostScale, "post_scale")
	if err != nil {
		return nil, err
	}
	if scale == 0 {
		return nil, fmt.Errorf("%w: scale must be non-zero", ErrMalformedModel)
	}

	trees := make([]Tree, 0, len(jm.Trees))
	for ti, jt := range jm.Trees {
		tree, err := buildTree(jt, jm.FeatureArity)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
		trees = append(trees, tree)
	}

	m := &Model{
		Scale:        scale,
		Bias:         bias,
		PostScale:    postScale,
		Trees:        trees,
		FeatureArity: jm.FeatureArity,
	}

	id, err := modelHash(m)
	if err != nil {
		return nil, err
	}
	m.ModelID = id
	return m, nil
}

func buildTree(jt jsonTree, arity uint16) (Tree, error) {
	if len(jt.Nodes) == 0 {
		return Tree{}, fmt.Errorf("%w: empty tree", ErrMalformedModel)
	}
	n := uint32(len(jt.Nodes))
	nodes := make([]Node, len(jt.Nodes))
	for i, jn := range jt.Nodes {
		switch {
		case jn.Leaf != nil:
			v, err := parseIntField(*jn.Leaf, "leaf")
			if err != nil {
				return Tree{}, err
			}
			nodes[i] = Node{IsLeaf: true, Value: v}
		case jn.FeatureIdx != nil && jn.Threshold != nil && jn.Left != nil && jn.Right != nil:
			if *jn.FeatureIdx >= arity {
				return Tree{}, fmt.Errorf("%w: feature_idx %d out of arity %d", ErrMalformedModel, *jn.FeatureIdx, arity)
			}
			if *jn.Left >= n || *jn.Right >= n {
				return Tree{}, fmt.Errorf("%w: child index out of range", ErrMalformedModel)
			}
			if *jn.Left == *jn.Right {
				return Tree{}, fmt.Errorf("%w: left == right", ErrMalformedModel)
			}
			threshold, err := parseIntField(*jn.Threshold, "threshold")
			if err != nil {
				return Tree{}, err
			}
			nodes[i] = Node{
				FeatureIdx: *jn.FeatureIdx,
				Threshold:  threshold,
				Left:       *jn.Left,
				Right:      *jn.Right,
			}
		default:
			return Tree{}, fmt.Errorf("%w: node %d is neither a complete leaf nor a complete internal node", ErrMalformedModel, i)
		}
	}
	if err := checkAcyclic(nodes); err != nil {
		return Tree{}, err
	}
	return Tree{Nodes: nodes}, nil
}

// checkAcyclic walks every root-to-leaf path with a visited-on-path set
// to reject cycles; a tree of N nodes has at most N-1 internal edges on
// any simple path, so DFS depth is bounded by N.
func checkAcyclic(nodes []Node) error {
	visiting := make(map[uint32]bool, len(nodes))
	var walk func(idx uint32) error
	walk = func(idx uint32) error {
		if visiting[idx] {
			return fmt.Errorf("%w: cycle detected at node %d", ErrMalformedModel, idx)
		}
		n := nodes[idx]
		if n.IsLeaf {
			return nil
		}
		visiting[idx] = true
		defer delete(visiting, idx)
		if err := walk(n.Left); err != nil {
			return err
		}
		return walk(n.Right)
	}
	return walk(0)
}
