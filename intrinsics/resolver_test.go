package intrinsics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopherj/hir2masm/intrinsics"
)

func TestAvailableKnownAndUnknownPaths(t *testing.T) {
	r := intrinsics.NewResolver()
	assert.True(t, r.Available("intrinsics::i64::sdiv"))
	assert.True(t, r.Available("intrinsics::i32::udiv"))
	assert.False(t, r.Available("intrinsics::i64::urem"))
}

func TestResolveUnknownPathErrors(t *testing.T) {
	r := intrinsics.NewResolver()
	_, err := r.Resolve("intrinsics::does::not::exist")
	require.Error(t, err)
}

func TestResolveCachesByContent(t *testing.T) {
	r := intrinsics.NewResolver()
	m1, err := r.Resolve("intrinsics::i64::sdiv")
	require.NoError(t, err)
	m2, err := r.Resolve("intrinsics::i64::sdiv")
	require.NoError(t, err)
	assert.Same(t, m1, m2, "resolving the same path twice must return the cached module")
}

func TestResolveGroupsDefinitionsByModule(t *testing.T) {
	r := intrinsics.NewResolver()
	m, err := r.Resolve("intrinsics::i64::sdiv")
	require.NoError(t, err)
	assert.Equal(t, "intrinsics::i64", m.Name)
	require.Len(t, m.Functions, 1)
	assert.Equal(t, "sdiv", m.Functions[0].ID.Name)
}
