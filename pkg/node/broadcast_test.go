package node_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/node"
)

func testUsers() []model.User {
	return []model.User{
		{ID: 1, Username: "alice", ProxySettings: model.ProxySettings{Vmess: &model.VmessSettings{UUID: "a-uuid"}}},
		{ID: 2, Username: "bob", ProxySettings: model.ProxySettings{Trojan: &model.TrojanSettings{Password: "hunter2"}}},
	}
}

func TestManager_UpdateUsers_SerializesOnce(t *testing.T) {
	fleet := &fakeFleet{}
	mgr := node.NewManager(fleet.factory, testLogger(), 0)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		_, err := mgr.UpdateNode(ctx, testConfig(id))
		require.NoError(t, err)
	}

	mgr.UpdateUsers(ctx, testUsers())

	first := fleet.created[0].batches
	require.Len(t, first, 1)
	require.Len(t, first[0].Users, 2)

	for _, b := range fleet.created[1:] {
		require.Len(t, b.batches, 1)
		assert.Same(t, first[0], b.batches[0], "every node must receive the same serialized batch")
	}
}

func TestManager_UpdateUser_FailingNodeDoesNotStopFanout(t *testing.T) {
	fleet := &fakeFleet{}
	mgr := node.NewManager(fleet.factory, testLogger(), 0)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		_, err := mgr.UpdateNode(ctx, testConfig(id))
		require.NoError(t, err)
	}
	fleet.created[1].updateErr = errors.New("node rejected update")

	user := testUsers()[0]
	mgr.UpdateUser(ctx, user, []string{"vmess-in"})

	for _, b := range fleet.created {
		require.Len(t, b.users, 1, "update must be attempted on every node")
		assert.Equal(t, "alice", b.users[0].Username)
		assert.Equal(t, []string{"vmess-in"}, b.users[0].Inbounds)
	}
}

func TestManager_RemoveUser_ReachesAllNodes(t *testing.T) {
	fleet := &fakeFleet{}
	mgr := node.NewManager(fleet.factory, testLogger(), 0)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		_, err := mgr.UpdateNode(ctx, testConfig(id))
		require.NoError(t, err)
	}
	fleet.created[1].updateErr = errors.New("connection reset")

	mgr.RemoveUser(ctx, testUsers()[1])

	for _, b := range fleet.created {
		require.Len(t, b.users, 1)
		assert.Equal(t, "bob", b.users[0].Username)
		assert.True(t, b.users[0].Removed, "removal must be marked on the wire")
		assert.Empty(t, b.users[0].Inbounds, "removal carries no inbound scope")
	}
}

func TestManager_RemoveUser_DistinctFromUnrestrictedUpdate(t *testing.T) {
	fleet := &fakeFleet{}
	mgr := node.NewManager(fleet.factory, testLogger(), 0)
	ctx := context.Background()

	_, err := mgr.UpdateNode(ctx, testConfig(1))
	require.NoError(t, err)

	user := testUsers()[0]
	mgr.UpdateUser(ctx, user, nil)
	mgr.RemoveUser(ctx, user)

	b := fleet.created[0]
	require.Len(t, b.users, 2)

	// An upsert with no inbound restriction and a deletion of the same
	// account must not serialize to the same bytes.
	upsert, err := json.Marshal(b.users[0])
	require.NoError(t, err)
	removal, err := json.Marshal(b.users[1])
	require.NoError(t, err)
	assert.NotEqual(t, upsert, removal)

	assert.False(t, b.users[0].Removed)
	assert.True(t, b.users[1].Removed)
}

func TestManager_UpdateUsers_EmptyRegistryIsNoop(t *testing.T) {
	fleet := &fakeFleet{}
	mgr := node.NewManager(fleet.factory, testLogger(), 0)

	mgr.UpdateUsers(context.Background(), testUsers())
	assert.Empty(t, fleet.created)
}
