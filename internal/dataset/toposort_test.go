package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func appearsBeforeIn(t *testing.T, x, y int, sorted []int) {
	t.Helper()
	xIdx, yIdx := -1, -1
	for i, v := range sorted {
		if v == x {
			xIdx = i
		}
		if v == y {
			yIdx = i
		}
	}
	assert.Less(t, xIdx, yIdx)
}

func TestTopologicalSortSimpleLinear(t *testing.T) {
	parent := ParseFs("parent", RoleTarget)
	parentCopy := ParseFs("parent", RoleTarget)
	child := ParseFs("parent/child", RoleTarget)
	grandChild := ParseFs("parent/child/grand_child", RoleTarget)

	unsorted := []Fs{grandChild, child, parentCopy}
	sorted, exists := parent.TopologicalSort(unsorted)
	assert.Empty(t, exists)
	assert.Equal(t, []int{2, 1, 0}, sorted)
}

func TestTopologicalSortSimpleLinear2(t *testing.T) {
	parent := ParseFs("parent", RoleTarget)
	parentCopy := ParseFs("parent", RoleTarget)
	child := ParseFs("parent/child", RoleTarget)
	grandChild := ParseFs("parent/child/grand_child", RoleTarget)

	unsorted := []Fs{parentCopy, child, grandChild}
	sorted, exists := parent.TopologicalSort(unsorted)
	assert.Empty(t, exists)
	assert.Equal(t, []int{0, 1, 2}, sorted)
}

func TestTopologicalSortSimpleCloned(t *testing.T) {
	parent := ParseFs("parent", RoleTarget)
	parentCopy := ParseFs("parent", RoleTarget)
	child := ParseFs("parent/child", RoleTarget)
	cloned := ParseFs("parent/cloned", RoleTarget)
	cloned.Origin = "parent/child@snap"
	grandChild := ParseFs("parent/child/grand_child", RoleTarget)

	unsorted := []Fs{parentCopy, cloned, child, grandChild}
	sorted, exists := parent.TopologicalSort(unsorted)
	assert.Empty(t, exists)
	assert.True(t,
		equalInts(sorted, []int{0, 2, 1, 3}) || equalInts(sorted, []int{0, 2, 3, 1}),
		"got %v", sorted)
}

func TestTopologicalSortCloneInSibling(t *testing.T) {
	parent := ParseFs("parent", RoleTarget)
	parentCopy := ParseFs("parent", RoleTarget)
	child1 := ParseFs("parent/child1", RoleTarget)
	clone := ParseFs("parent/child1/clone", RoleTarget)
	clone.Origin = "parent/child2@snap"
	child2 := ParseFs("parent/child2", RoleTarget)

	unsorted := []Fs{parentCopy, child1, clone, child2}
	sorted, exists := parent.TopologicalSort(unsorted)
	assert.Empty(t, exists)
	assert.True(t,
		equalInts(sorted, []int{0, 1, 3, 2}) || equalInts(sorted, []int{0, 3, 1, 2}),
		"got %v", sorted)
}

func TestTopologicalSortSyncoidPR572Example(t *testing.T) {
	testPool := ParseFs("testpool1", RoleTarget)
	a := ParseFs("testpool1/A", RoleTarget)
	a.Origin = "testpool1/B@b"
	aD := ParseFs("testpool1/A/D", RoleTarget)
	b := ParseFs("testpool1/B", RoleTarget)
	b.Origin = "testpool1/C@a"
	c := ParseFs("testpool1/C", RoleTarget)

	unsorted := []Fs{testPool, a, b, c, aD}
	sorted, exists := unsorted[0].TopologicalSort(unsorted)
	assert.Empty(t, exists)

	for i := 1; i < len(unsorted); i++ {
		appearsBeforeIn(t, 0, i, sorted)
	}
	appearsBeforeIn(t, 1, 4, sorted) // A before A/D
	appearsBeforeIn(t, 2, 1, sorted) // B (a's origin) before A
	appearsBeforeIn(t, 3, 2, sorted) // C (b's origin) before B
}

func TestTopologicalSortMustExist(t *testing.T) {
	parent := ParseFs("parent", RoleTarget)
	grandChild := ParseFs("parent/missing/grand_child", RoleTarget)

	sorted, exists := parent.TopologicalSort([]Fs{grandChild})
	assert.Equal(t, []int{0}, sorted)
	assert.Contains(t, exists, "parent/missing")
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
