package calendarsync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestUserLocks verifies per-user exclusivity and teardown on release.
func TestUserLocks(t *testing.T) {
	t.Parallel()

	locks := newUserLocks()
	userA := uuid.New()
	userB := uuid.New()

	require.True(t, locks.tryAcquire(userA))
	require.False(t, locks.tryAcquire(userA))

	// Locks are keyed: another user is unaffected.
	require.True(t, locks.tryAcquire(userB))

	locks.release(userA)
	require.True(t, locks.tryAcquire(userA))

	// Entries are removed on release, not leaked.
	locks.release(userA)
	locks.release(userB)
	require.Empty(t, locks.active)
}
