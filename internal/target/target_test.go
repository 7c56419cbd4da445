package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHost(t *testing.T) {
	assert.Equal(t, "user-host", sanitizeHost("user@host"))
	assert.Equal(t, "hostexamplecom", sanitizeHost("host.example.com"))
	assert.LessOrEqual(t, len(sanitizeHost(string(make([]byte, 200)))), 50)
}

func TestTargetEqual(t *testing.T) {
	local1 := NewLocal()
	local2 := NewLocal()
	assert.True(t, local1.Equal(local2))

	r1 := NewRemote("host1", "", "", "", "", nil)
	r2 := NewRemote("host1", "", "", "", "", nil)
	r3 := NewRemote("host2", "", "", "", "", nil)
	assert.True(t, r1.Equal(r2))
	assert.False(t, r1.Equal(r3))
	assert.False(t, r1.Equal(local1))
}

func TestNewRemoteEmptyHostIsLocal(t *testing.T) {
	tgt := NewRemote("", "", "", "", "", nil)
	assert.False(t, tgt.IsRemote())
}

func TestMakeBaseLocal(t *testing.T) {
	tgt := NewLocal()
	assert.Equal(t, []string{"zfs"}, tgt.MakeBase("zfs"))
}

func TestMakeBaseRemote(t *testing.T) {
	tgt := NewRemote("host1", "", "", "", "", nil)
	base := tgt.MakeBase("zfs")
	assert.Equal(t, []string{"ssh", "host1", "zfs"}, base)
}
