// Package merkle builds the whitelist Merkle tree used by the candy machine
// allow list guard.
//
// Leaves are keccak256 of the raw entry bytes. Each parent hashes its two
// children in ascending byte order, and an odd node at the end of a layer is
// carried up unchanged. The tree never reorders leaves; callers sort the
// entries (see SortAddresses) before building so the root is deterministic.
package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
)

var ErrNotInTree = errors.New("entry is not part of the tree")

type Tree struct {
	// layers[0] holds the leaf hashes, the last layer holds the root.
	layers [][][]byte
}

// Leaf hashes one whitelist entry.
func Leaf(data []byte) []byte {
	return crypto.Keccak256(data)
}

func hashPair(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256(a, b)
}

// New hashes every entry into a leaf and builds the tree.
func New(data [][]byte) *Tree {
	leaves := make([][]byte, len(data))
	for i, d := range data {
		leaves[i] = Leaf(d)
	}
	t := &Tree{layers: [][][]byte{leaves}}
	for layer := leaves; len(layer) > 1; {
		next := make([][]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}
	return t
}

// FromStrings builds a tree over the UTF-8 bytes of each entry.
func FromStrings(entries []string) *Tree {
	data := make([][]byte, len(entries))
	for i, e := range entries {
		data[i] = []byte(e)
	}
	return New(data)
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.layers[0])
}

// Root is empty for a tree without leaves.
func (t *Tree) Root() []byte {
	top := t.layers[len(t.layers)-1]
	if len(top) == 0 {
		return []byte{}
	}
	return top[0]
}

func (t *Tree) RootHex() string {
	return hex.EncodeToString(t.Root())
}

// Proof returns the sibling hashes from the leaf at index up to the root.
func (t *Tree) Proof(index int) ([][]byte, error) {
	if index < 0 || index >= t.Len() {
		return nil, fmt.Errorf("leaf index %d out of range [0,%d)", index, t.Len())
	}
	var proof [][]byte
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := index + 1
		if index%2 == 1 {
			sibling = index - 1
		}
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		index /= 2
	}
	return proof, nil
}

// ProofFor looks up the first leaf matching data and returns its proof.
func (t *Tree) ProofFor(data []byte) ([][]byte, error) {
	leaf := Leaf(data)
	for i, l := range t.layers[0] {
		if bytes.Equal(l, leaf) {
			return t.Proof(i)
		}
	}
	return nil, ErrNotInTree
}

// Verify checks that leaf hashes up to root through proof.
func Verify(proof [][]byte, leaf, root []byte) bool {
	h := leaf
	for _, p := range proof {
		h = hashPair(h, p)
	}
	return len(root) > 0 && bytes.Equal(h, root)
}

// SortAddresses returns a sorted copy of the entries.
func SortAddresses(entries []string) []string {
	out := append([]string(nil), entries...)
	sort.Strings(out)
	return out
}

// Duplicates lists the entries appearing more than once, in sorted order.
func Duplicates(entries []string) []string {
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		seen[e]++
	}
	var dups []string
	for e, n := range seen {
		if n > 1 {
			dups = append(dups, e)
		}
	}
	sort.Strings(dups)
	return dups
}
