package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSpaceFor(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("11111111-1111-4111-8111-111111111111")
	space := SpaceFor(id)

	require.Equal(t, id, space.TenantID)
	require.Equal(t, SchemaName(id), space.SchemaName)
}

func TestSpaceContextRoundTrip(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	require.False(t, ok)

	space := SpaceFor(uuid.New())
	ctx := WithSpace(context.Background(), space)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, space, got)

	// A derived context still carries the space.
	got, ok = FromContext(context.WithValue(ctx, struct{ k string }{"other"}, 1))
	require.True(t, ok)
	require.Equal(t, space, got)
}
