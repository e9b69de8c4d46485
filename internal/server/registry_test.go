package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func userIDs(entries []ConnectionEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	return ids
}

func TestRegistry_Register_Then_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("alice", "s1")

	connID, ok := registry.Lookup("alice")
	req.True(ok)
	req.Equal("s1", connID)

	_, ok = registry.Lookup("bob")
	req.False(ok)
}

func TestRegistry_Register_Same_User_Twice_Last_Wins(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given a user registered on c1
	registry.Register("u", "c1")

	// When the same user registers on c2
	registry.Register("u", "c2")

	// Then only c2 is bound to the user
	connID, ok := registry.Lookup("u")
	req.True(ok)
	req.Equal("c2", connID)
	req.Len(registry.Snapshot(), 1)

	// And removing the stale connection changes nothing
	req.False(registry.Remove("c1"))
	connID, _ = registry.Lookup("u")
	req.Equal("c2", connID)
}

func TestRegistry_Register_Rebinds_Connection_To_New_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("alice", "c1")
	registry.Register("bob", "c1")

	_, ok := registry.Lookup("alice")
	req.False(ok)
	connID, ok := registry.Lookup("bob")
	req.True(ok)
	req.Equal("c1", connID)
	req.Equal([]ConnectionEntry{{UserID: "bob", ConnectionID: "c1"}}, registry.Snapshot())
}

func TestRegistry_Remove_Unknown_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("alice", "s1")

	req.False(registry.Remove("cX"))

	req.Equal([]ConnectionEntry{{UserID: "alice", ConnectionID: "s1"}}, registry.Snapshot())
}

func TestRegistry_Remove_Deletes_Entry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("alice", "s1")
	registry.Register("bob", "s2")

	req.True(registry.Remove("s1"))

	_, ok := registry.Lookup("alice")
	req.False(ok)
	_, ok = registry.UserOf("s1")
	req.False(ok)
	req.Equal([]string{"bob"}, userIDs(registry.Snapshot()))
}

func TestRegistry_Snapshot_Keeps_Registration_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("carol", "s3")
	registry.Register("alice", "s1")
	registry.Register("bob", "s2")
	req.Equal([]string{"carol", "alice", "bob"}, userIDs(registry.Snapshot()))

	// A reconnect moves the user to the position of its newest registration
	registry.Register("carol", "s4")
	req.Equal([]string{"alice", "bob", "carol"}, userIDs(registry.Snapshot()))
}

func TestRegistry_Snapshot_Does_Not_Alias_Internal_State(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("alice", "s1")

	snap := registry.Snapshot()
	snap[0].UserID = "mallory"
	registry.Register("bob", "s2")

	req.Equal([]string{"alice", "bob"}, userIDs(registry.Snapshot()))
	req.Len(snap, 1)
}

func TestRegistry_Snapshot_Length_Matches_Registrations(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	for i := 0; i < 10; i++ {
		registry.Register(fmt.Sprintf("user-%d", i), fmt.Sprintf("conn-%d", i))
		req.Len(registry.Snapshot(), i+1)
		req.Equal(i+1, registry.Len())
	}
	for i := 0; i < 10; i += 2 {
		registry.Remove(fmt.Sprintf("conn-%d", i))
	}
	req.Len(registry.Snapshot(), 5)
}

func TestRegistry_Concurrent_Mutations_Do_Not_Lose_Updates(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			user, conn := fmt.Sprintf("user-%d", i), fmt.Sprintf("conn-%d", i)
			registry.Register(user, conn)
			_ = registry.Snapshot()
			if i%2 == 1 {
				registry.Remove(conn)
			}
		}(i)
	}
	wg.Wait()

	req.Equal(n/2, registry.Len())
	for i := 0; i < n; i++ {
		connID, ok := registry.Lookup(fmt.Sprintf("user-%d", i))
		if i%2 == 1 {
			req.False(ok)
			continue
		}
		req.True(ok)
		req.Equal(fmt.Sprintf("conn-%d", i), connID)
	}
}
