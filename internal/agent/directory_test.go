package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-society/society/internal/world"
)

func testWorld(t *testing.T) *world.LocationDirectory {
	t.Helper()
	locations := world.NewLocationDirectory()
	locations.Add(world.NewLocation("cafe-1", "星光咖啡馆", world.KindCafe, world.Position{X: 0, Y: 0}, 2))
	locations.Add(world.NewLocation("office-1", "科技公司", world.KindOffice, world.Position{X: 10, Y: 0}, 50))
	locations.Add(world.NewLocation("park-1", "中央公园", world.KindPark, world.Position{X: 100, Y: 100}, 200))
	return locations
}

func TestMoveAgentUpdatesOccupancy(t *testing.T) {
	locations := testWorld(t)
	dir := NewDirectory(locations, 10)
	a := testAgent(t)
	require.NoError(t, dir.Add(a))

	loc, err := dir.MoveAgent(a, "星光咖啡馆")
	require.NoError(t, err)
	assert.Equal(t, 1, loc.OccupantCount())
	assert.Equal(t, "星光咖啡馆", a.LocationName())

	_, err = dir.MoveAgent(a, "科技公司")
	require.NoError(t, err)
	assert.Zero(t, loc.OccupantCount())
	assert.Equal(t, "科技公司", a.LocationName())
}

func TestMoveAgentUnknownLocation(t *testing.T) {
	dir := NewDirectory(testWorld(t), 10)
	a := testAgent(t)
	require.NoError(t, dir.Add(a))

	_, err := dir.MoveAgent(a, "不存在的地方")
	assert.Error(t, err)
	assert.Empty(t, a.LocationName())
}

func TestMoveAgentFullLocationRefused(t *testing.T) {
	locations := testWorld(t)
	dir := NewDirectory(locations, 10)

	first, second, third := testAgent(t), testAgent(t), testAgent(t)
	for _, a := range []*Agent{first, second, third} {
		require.NoError(t, dir.Add(a))
	}
	_, err := dir.MoveAgent(first, "星光咖啡馆")
	require.NoError(t, err)
	_, err = dir.MoveAgent(second, "星光咖啡馆")
	require.NoError(t, err)

	_, err = dir.MoveAgent(third, "星光咖啡馆")
	assert.Error(t, err)
	assert.Empty(t, third.LocationName(), "refused move leaves agent in place")
}

func TestDirectoryCapacity(t *testing.T) {
	dir := NewDirectory(testWorld(t), 2)
	require.NoError(t, dir.Add(testAgent(t)))
	require.NoError(t, dir.Add(testAgent(t)))

	assert.Error(t, dir.Add(testAgent(t)))
	assert.Equal(t, 2, dir.Count())
}

func TestNearbyTwoTiers(t *testing.T) {
	locations := testWorld(t)
	dir := NewDirectory(locations, 10)

	me, colocated, near, far := testAgent(t), testAgent(t), testAgent(t), testAgent(t)
	for _, a := range []*Agent{me, colocated, near, far} {
		require.NoError(t, dir.Add(a))
	}
	_, err := dir.MoveAgent(me, "星光咖啡馆")
	require.NoError(t, err)
	_, err = dir.MoveAgent(colocated, "星光咖啡馆")
	require.NoError(t, err)
	_, err = dir.MoveAgent(near, "科技公司")
	require.NoError(t, err)
	_, err = dir.MoveAgent(far, "中央公园")
	require.NoError(t, err)

	got := dir.Nearby(me, 15)
	ids := make(map[string]bool)
	for _, a := range got {
		ids[a.ID.String()] = true
	}
	assert.Len(t, got, 2)
	assert.True(t, ids[colocated.ID.String()])
	assert.True(t, ids[near.ID.String()])
	assert.False(t, ids[far.ID.String()])
	assert.False(t, ids[me.ID.String()])
}

func TestRemoveFreesLocation(t *testing.T) {
	locations := testWorld(t)
	dir := NewDirectory(locations, 10)
	a := testAgent(t)
	require.NoError(t, dir.Add(a))
	loc, err := dir.MoveAgent(a, "星光咖啡馆")
	require.NoError(t, err)

	dir.Remove(a.ID)
	assert.Zero(t, loc.OccupantCount())
	assert.Zero(t, dir.Count())
}

func TestStats(t *testing.T) {
	dir := NewDirectory(testWorld(t), 10)
	a := testAgent(t)
	require.NoError(t, dir.Add(a))
	_, err := dir.MoveAgent(a, "星光咖啡馆")
	require.NoError(t, err)

	stats := dir.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByState[StateActive])
	assert.Equal(t, 1, stats.ByLoc["星光咖啡馆"])
}
