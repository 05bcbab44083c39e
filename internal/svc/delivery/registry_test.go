package delivery

import (
	"testing"

	"github.com/devmesh/chat/internal/testutil"
)

func TestRegistryBindResolve(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	r.Bind("conn-1", "a")

	user, ok := r.Resolve("conn-1")
	testutil.Assert(t, true, ok, "bound connection resolves")
	testutil.Assert(t, "a", user, "resolves to the bound user")

	_, ok = r.Resolve("conn-2")
	testutil.Assert(t, false, ok, "unknown connection does not resolve")
}

func TestRegistryRebindOrphansOldHandle(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	r.Bind("conn-1", "a")
	r.Bind("conn-2", "a")

	_, ok := r.Resolve("conn-1")
	testutil.Assert(t, false, ok, "old handle orphaned on rebind")

	user, ok := r.Resolve("conn-2")
	testutil.Assert(t, true, ok, "new handle resolves")
	testutil.Assert(t, "a", user, "new handle maps to the user")
	testutil.Assert(t, 1, r.Size(), "one binding remains")
}

func TestRegistryUnbind(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	r.Bind("conn-1", "a")
	r.Unbind("conn-1")

	_, ok := r.Resolve("conn-1")
	testutil.Assert(t, false, ok, "unbound connection does not resolve")
	testutil.Assert(t, 0, r.Size(), "registry empty")

	// Unbinding twice is harmless.
	r.Unbind("conn-1")
	testutil.Assert(t, 0, r.Size(), "still empty")
}
