package serializer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/serializer"
)

func TestUsersForNode(t *testing.T) {
	users := []model.User{
		{
			ID:       1,
			Username: "alice",
			ProxySettings: model.ProxySettings{
				Vmess: &model.VmessSettings{UUID: "3a5322cd-7d28-4acf-8490-b1b54ed9ba97"},
			},
			Inbounds: model.StringList{"vmess-in"},
		},
		{ID: 2, Username: "bob"},
	}

	batch := serializer.UsersForNode(users)
	require.Len(t, batch.Users, 2)

	assert.Equal(t, int64(1), batch.Users[0].ID)
	assert.Equal(t, "alice", batch.Users[0].Username)
	require.NotNil(t, batch.Users[0].Proxies.Vmess)
	assert.Equal(t, []string{"vmess-in"}, batch.Users[0].Inbounds)

	assert.Equal(t, "bob", batch.Users[1].Username)
	assert.Empty(t, batch.Users[1].Inbounds)
}

func TestUsersForNode_Empty(t *testing.T) {
	batch := serializer.UsersForNode(nil)
	require.NotNil(t, batch)
	assert.Empty(t, batch.Users)
}
