package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestNewFsUserHosts(t *testing.T) {
	f := ParseFs("user@host:pool", RoleSource)
	assert.Equal(t, "user@host", f.Host)
	assert.Equal(t, "pool", f.Path)

	f = ParseFs("user@host:pool/filesystem", RoleSource)
	assert.Equal(t, "user@host", f.Host)
	assert.Equal(t, "pool/filesystem", f.Path)
}

func TestNewFsHostsWithoutUsers(t *testing.T) {
	f := ParseFs("host:pool", RoleSource)
	assert.Equal(t, "host", f.Host)
	assert.Equal(t, "pool", f.Path)

	f = ParseFs("host:pool/filesystem", RoleSource)
	assert.Equal(t, "host", f.Host)
	assert.Equal(t, "pool/filesystem", f.Path)

	f = ParseFs("host:pool/filesystem:alsofs", RoleSource)
	assert.Equal(t, "host", f.Host)
	assert.Equal(t, "pool/filesystem:alsofs", f.Path)
}

func TestNewFsUserHostsPoolFsColon(t *testing.T) {
	f := ParseFs("user@host:pool:alsopool", RoleSource)
	assert.Equal(t, "user@host", f.Host)
	assert.Equal(t, "pool:alsopool", f.Path)

	f = ParseFs("user@host:pool:alsopool/filesystem:alsofs", RoleSource)
	assert.Equal(t, "user@host", f.Host)
	assert.Equal(t, "pool:alsopool/filesystem:alsofs", f.Path)
}

func TestNewFsEmptyHost(t *testing.T) {
	f := ParseFs("pool", RoleSource)
	assert.Equal(t, "", f.Host)
	assert.Equal(t, "pool", f.Path)

	f = ParseFs("pool/filesystem", RoleSource)
	assert.Equal(t, "", f.Host)
	assert.Equal(t, "pool/filesystem", f.Path)
}

// TestNewFsEmptyHostPoolFsColon covers an explicitly forced-empty host
// (as opposed to no host given at all): fs must be taken verbatim, with
// no attempt to split it at ':', even though it looks like host:dataset.
func TestNewFsEmptyHostPoolFsColon(t *testing.T) {
	f := NewFs(strptr(""), "poolnothost:alsopool", RoleSource)
	assert.Equal(t, "", f.Host)
	assert.Equal(t, "poolnothost:alsopool", f.Path)

	f = NewFs(strptr(""), "poolnothost:alsopool/filesystem:alsofs", RoleSource)
	assert.Equal(t, "", f.Host)
	assert.Equal(t, "poolnothost:alsopool/filesystem:alsofs", f.Path)
}

func TestNewFsNonemptyHostPoolFsColon(t *testing.T) {
	f := NewFs(strptr("user@host"), "poolnothost:alsopool", RoleSource)
	assert.Equal(t, "user@host", f.Host)
	assert.Equal(t, "poolnothost:alsopool", f.Path)

	f = NewFs(strptr("user@host"), "poolnothost:alsopool/filesystem:alsofs", RoleSource)
	assert.Equal(t, "user@host", f.Host)
	assert.Equal(t, "poolnothost:alsopool/filesystem:alsofs", f.Path)

	f = NewFs(strptr("user:wierduser@host:wierdhost"), "poolnothost:alsopool/filesystem:alsofs", RoleSource)
	assert.Equal(t, "user:wierduser@host:wierdhost", f.Host)
	assert.Equal(t, "poolnothost:alsopool/filesystem:alsofs", f.Path)
}

func TestChildFromSource(t *testing.T) {
	source := ParseFs("tank/src", RoleSource)
	target := ParseFs("pool/dst", RoleTarget)
	child := ParseFs("tank/src/leaf", RoleSource)
	child.Origin = "tank/src/origin@snap"

	got, err := target.ChildFromSource(source, child, true)
	assert.NoError(t, err)
	assert.Equal(t, "pool/dst/leaf", got.Path)
	assert.Equal(t, "pool/dst/origin@snap", got.Origin)
}

func TestChildFromSourceNoCloneHandling(t *testing.T) {
	source := ParseFs("tank/src", RoleSource)
	target := ParseFs("pool/dst", RoleTarget)
	child := ParseFs("tank/src/leaf", RoleSource)
	child.Origin = "tank/src/origin@snap"

	got, err := target.ChildFromSource(source, child, false)
	assert.NoError(t, err)
	assert.Equal(t, "pool/dst/leaf", got.Path)
	assert.Equal(t, "", got.Origin)
}

func TestChildFromSourceMismatch(t *testing.T) {
	source := ParseFs("tank/src", RoleSource)
	target := ParseFs("pool/dst", RoleTarget)
	other := ParseFs("tank/other/leaf", RoleSource)

	_, err := target.ChildFromSource(source, other, true)
	assert.Error(t, err)
}

func TestOriginDataset(t *testing.T) {
	f := ParseFs("pool/clone", RoleTarget)
	assert.Equal(t, "", f.OriginDataset())
	f.Origin = "pool/base@snap"
	assert.Equal(t, "pool/base", f.OriginDataset())
}

func TestGetIsRoots(t *testing.T) {
	s, tr := GetIsRoots("root@host1", "user@host2", false)
	assert.True(t, s)
	assert.False(t, tr)

	s, tr = GetIsRoots("user@host1", "user@host2", true)
	assert.True(t, s)
	assert.True(t, tr)
}
