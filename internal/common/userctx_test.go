package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, UserContextFromContext(ctx), "Expected nil UserContext from empty context")

	uc := &UserContext{UserID: "user-123"}
	ctx = WithUserContext(ctx, uc)

	got := UserContextFromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "user-123", got.UserID)
}

func TestResolveUserID_Absent(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ResolveUserID(ctx))
}

func TestResolveUserID_WithUserContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithUserContext(ctx, &UserContext{UserID: "user-456"})
	assert.Equal(t, "user-456", ResolveUserID(ctx))
}
