/*
 * Copyright 2024 Raamsri Kumar <raam@tinkershack.in> and The StrataSTOR Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dataset

// trieNode is one path component of the dataset tree rooted at a parent
// Fs. index points back into the original children slice passed to
// TopologicalSort, or is nil for an intermediate dataset that was not
// itself in that slice (an ancestor that must already exist).
type trieNode struct {
	index    *int
	dataset  string
	children map[string]*trieNode
}

func newTrieNode(dataset string) *trieNode {
	return &trieNode{dataset: dataset, children: make(map[string]*trieNode)}
}

// pathComponents walks from parent down to child, returning, for every
// path component strictly below parent, the (fullPathUpToAndIncludingIt,
// component) pair. If parent == child it returns a single sentinel entry
// with an empty component, signalling "this is the root itself".
func pathComponents(parent, child string) [][2]string {
	if parent == child {
		return [][2]string{{child, ""}}
	}
	afterPrefix := len(parent)
	if child[afterPrefix] == '/' {
		afterPrefix++
	}
	var res [][2]string
	componentStart := afterPrefix
	for idx := afterPrefix; idx < len(child); idx++ {
		if child[idx] == '/' {
			res = append(res, [2]string{child[:idx], child[componentStart:idx]})
			componentStart = idx + 1
		}
	}
	res = append(res, [2]string{child, child[componentStart:]})
	return res
}

// getOrInsert descends into (or creates) the child named by component,
// returning self unchanged when component is empty (the parent==child
// sentinel).
func (t *trieNode) getOrInsert(datasetPath, component string) *trieNode {
	if component == "" {
		return t
	}
	next, ok := t.children[component]
	if !ok {
		next = newTrieNode(datasetPath)
		t.children[component] = next
	}
	return next
}

func (t *trieNode) insertStr(parent, childDataset string) *trieNode {
	node := t
	for _, pc := range pathComponents(parent, childDataset) {
		node = node.getOrInsert(pc[0], pc[1])
	}
	return node
}

func (t *trieNode) getStr(parent, child string) *trieNode {
	node := t
	for _, pc := range pathComponents(parent, child) {
		if pc[1] == "" {
			continue
		}
		next, ok := node.children[pc[1]]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// TopologicalSort orders children (which must all share f's path as a
// prefix, with no leading/trailing/double slashes) so that every parent
// dataset precedes its children and every clone origin precedes its
// clone. It also reports the set of ancestor
// dataset paths that were not themselves present in children but must
// already exist on the target for the sorted operations to succeed.
//
// No cycle detection is needed: ZFS cannot construct a parent/child or
// clone/origin cycle.
func (f Fs) TopologicalSort(children []Fs) (sorted []int, mustExist map[string]struct{}) {
	mustExist = make(map[string]struct{})
	if len(children) == 0 {
		return nil, mustExist
	}

	rootDataset := children[0].Path[:len(f.Path)]
	root := newTrieNode(rootDataset)
	for idx, child := range children {
		idx := idx
		node := root.insertStr(f.Path, child.Path)
		node.index = &idx
	}

	graph := make([]map[int]struct{}, len(children))
	for i := range graph {
		graph[i] = make(map[int]struct{})
	}

	type stackEntry struct {
		node  *trieNode
		depth int
	}
	type parentEntry struct {
		idx   int
		depth int
	}

	stack := []stackEntry{{root, 0}}
	var parents []parentEntry

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node, depth := top.node, top.depth

		for len(parents) > 0 && parents[len(parents)-1].depth >= depth {
			parents = parents[:len(parents)-1]
		}

		if len(parents) > 0 && node.index != nil {
			graph[parents[len(parents)-1].idx][*node.index] = struct{}{}
		}

		if node.index != nil {
			parents = append(parents, parentEntry{idx: *node.index, depth: depth})
		} else {
			mustExist[node.dataset] = struct{}{}
		}

		for _, child := range node.children {
			stack = append(stack, stackEntry{child, depth + 1})
		}
	}

	for to, child := range children {
		origin := child.OriginDataset()
		if origin == "" {
			continue
		}
		if originNode := root.getStr(f.Path, origin); originNode != nil && originNode.index != nil {
			graph[*originNode.index][to] = struct{}{}
		}
		// else: the origin was excluded from the sync set; the caller
		// falls back to a full (non-incremental) send for this clone.
	}

	seen := make([]bool, len(children))
	sorted = make([]int, 0, len(children))

	type dfsFrame struct {
		node      int
		remaining []int
	}
	neighbors := func(n int) []int {
		ns := make([]int, 0, len(graph[n]))
		for k := range graph[n] {
			ns = append(ns, k)
		}
		return ns
	}

	var dfsStack []*dfsFrame
	for idx := range children {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		dfsStack = append(dfsStack, &dfsFrame{node: idx, remaining: neighbors(idx)})
		for len(dfsStack) > 0 {
			frame := dfsStack[len(dfsStack)-1]
			if len(frame.remaining) == 0 {
				sorted = append(sorted, frame.node)
				dfsStack = dfsStack[:len(dfsStack)-1]
				continue
			}
			next := frame.remaining[0]
			frame.remaining = frame.remaining[1:]
			if !seen[next] {
				seen[next] = true
				dfsStack = append(dfsStack, &dfsFrame{node: next, remaining: neighbors(next)})
			}
		}
	}

	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted, mustExist
}
