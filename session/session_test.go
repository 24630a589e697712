package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gopherj/hir2masm/session"
)

func TestDefaultConfig(t *testing.T) {
	cfg := session.NewConfig()
	assert.False(t, cfg.EmitConcurrently)
	assert.True(t, cfg.VerifyMergeShapes)
	assert.False(t, cfg.TextOutput)
}

func TestOptionsComposeWithoutMutatingEachOther(t *testing.T) {
	base := session.NewConfig()
	concurrent := base.Apply(session.WithConcurrentEmit())
	assert.True(t, concurrent.EmitConcurrently)
	assert.False(t, base.EmitConcurrently, "Apply must not mutate the receiver's caller-visible copy")

	lenient := base.Apply(session.WithMergeVerification(false), session.WithTextOutput())
	assert.False(t, lenient.VerifyMergeShapes)
	assert.True(t, lenient.TextOutput)
	assert.False(t, concurrent.TextOutput, "options applied to one derived Config must not leak to another")
}
