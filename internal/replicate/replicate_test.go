package replicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestCommon(t *testing.T) {
	assert.Equal(t, "b", latestCommon([]string{"a", "b", "c"}, []string{"a", "b"}))
	assert.Equal(t, "", latestCommon([]string{"a", "b"}, []string{"c"}))
	assert.Equal(t, "", latestCommon([]string{"a", "b"}, nil))
	assert.Equal(t, "c", latestCommon([]string{"a", "b", "c"}, []string{"x", "c"}))
}

func TestSendArgsFirstTransfer(t *testing.T) {
	p := &Planner{Opts: Options{Recursive: true}}
	args, err := p.sendArgs("tank/a", "", "snap2")
	require.NoError(t, err)
	assert.Equal(t, []string{"-R", "tank/a@snap2"}, args)
}

func TestSendArgsNonRecursiveFirstTransfer(t *testing.T) {
	p := &Planner{}
	args, err := p.sendArgs("tank/a", "", "snap2")
	require.NoError(t, err)
	assert.Equal(t, []string{"tank/a@snap2"}, args)
}

func TestSendArgsIncremental(t *testing.T) {
	p := &Planner{}
	args, err := p.sendArgs("tank/a", "snap1", "snap2")
	require.NoError(t, err)
	assert.Equal(t, []string{"-I", "snap1", "tank/a@snap2"}, args)
}

func TestSendArgsFiltersDisallowedLetters(t *testing.T) {
	p := &Planner{Opts: Options{SendOpts: "Rvz"}}
	args, err := p.sendArgs("tank/a", "", "snap2")
	require.NoError(t, err)
	// 'z' is not in sendAllowed and is silently dropped.
	assert.Equal(t, []string{"-Rv", "tank/a@snap2"}, args)
}

func TestSendArgsRejectsUnparsableOptString(t *testing.T) {
	p := &Planner{Opts: Options{SendOpts: "o"}}
	_, err := p.sendArgs("tank/a", "", "snap2")
	assert.Error(t, err)
}

func TestRecvArgsEmpty(t *testing.T) {
	p := &Planner{}
	args, err := p.recvArgs()
	require.NoError(t, err)
	assert.Nil(t, args)
}

func TestRecvArgsFiltersDisallowedLetters(t *testing.T) {
	p := &Planner{Opts: Options{RecvOpts: "Fuz"}}
	args, err := p.recvArgs()
	require.NoError(t, err)
	assert.Equal(t, []string{"-Fu"}, args)
}
