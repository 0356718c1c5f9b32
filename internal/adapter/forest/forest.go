// Package forest evaluates pre-trained random forest classifiers exported as JSON.
//
// An artifact lists the class labels and the trees. Each tree is a flat node
// array rooted at index 0; internal nodes test one named feature column and
// send values <= threshold left. Child indexes always point forward, so every
// walk terminates.
//
//	{"classes": [1,2,3,4,5],
//	 "trees": [{"nodes": [
//	   {"feature": "CO2 (PPM)", "threshold": 2.5, "left": 1, "right": 2},
//	   {"leaf": true, "class": 2},
//	   {"leaf": true, "class": 4}]}]}
package forest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"sort"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
)

// Node is one decision or leaf node of a tree.
type Node struct {
	Feature   string  `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Leaf      bool    `json:"leaf,omitempty"`
	Class     int     `json:"class,omitempty"`
}

// Tree is a flat array of nodes rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a majority-vote ensemble of trees. It is immutable once decoded
// and implements domain.Classifier.
type Forest struct {
	Classes []int  `json:"classes"`
	Trees   []Tree `json:"trees"`
}

var _ domain.Classifier = (*Forest)(nil)

// Decode reads and validates a forest artifact.
func Decode(r io.Reader) (*Forest, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f Forest
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFS decodes the named artifact from fsys.
func LoadFS(fsys fs.FS, name string) (*Forest, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open forest %s: %w", name, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	f, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func (f *Forest) validate() error {
	if len(f.Classes) == 0 {
		return errors.New("forest has no classes")
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if !slices.Contains(f.Classes, n.Class) {
					return fmt.Errorf("tree %d node %d: leaf class %d not in classes", ti, ni, n.Class)
				}
				continue
			}
			if n.Feature == "" {
				return fmt.Errorf("tree %d node %d: split without feature", ti, ni)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d: child index %d out of range", ti, ni, child)
				}
			}
		}
	}
	return nil
}

// Features returns the sorted set of feature columns the forest splits on.
func (f *Forest) Features() []string {
	seen := make(map[string]struct{})
	for _, t := range f.Trees {
		for _, n := range t.Nodes {
			if !n.Leaf {
				seen[n.Feature] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Predict returns the class with the most tree votes. Ties go to the lower class.
func (f *Forest) Predict(ctx context.Context, row domain.FeatureRow) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	votes := make(map[int]int, len(f.Classes))
	for ti := range f.Trees {
		class, err := f.Trees[ti].walk(row)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", ti, err)
		}
		votes[class]++
	}

	best, bestVotes := 0, -1
	for _, class := range f.Classes {
		n := votes[class]
		if n > bestVotes || (n == bestVotes && class < best) {
			best, bestVotes = class, n
		}
	}
	return best, nil
}

func (t *Tree) walk(row domain.FeatureRow) (int, error) {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Leaf {
			return n.Class, nil
		}
		v, ok := row[n.Feature]
		if !ok {
			return 0, fmt.Errorf("missing feature column %q", n.Feature)
		}
		if v <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}
