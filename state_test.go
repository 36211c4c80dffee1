package tfgo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameMode_Valid(t *testing.T) {
	assert.True(t, ModeSingleCapture.Valid())
	assert.True(t, ModeMultiCapture.Valid())
	assert.True(t, ModePayload.Valid())
	assert.False(t, GameMode("").Valid())
	assert.False(t, GameMode("Deathmatch").Valid())
}

func TestGame_Lookups(t *testing.T) {
	g := gameWithPickup()

	i, ok := g.PlayerIndex("b")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = g.PlayerIndex("nobody")
	assert.False(t, ok)

	i, ok = g.ObjectiveIndex("CP1")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = g.PickupIndex(Point{2, 8})
	assert.True(t, ok)

	_, ok = g.PickupIndex(Point{2, 8.0001})
	assert.False(t, ok, "pickups match on exact location")

	assert.False(t, g.Started())
	g.StartTime = "now"
	assert.True(t, g.Started())
}

func TestStore_SnapshotIsolation(t *testing.T) {
	store := NewStore(User{Name: "a", Weapons: []string{"Sword"}})
	store.SetCurrentGame(Game{
		ID:         "g1",
		Players:    []Player{{Name: "a"}},
		Objectives: []Objective{{ID: "CP1", Occupants: []string{"a"}}},
		Boundaries: []Point{{0, 0}},
	})

	snap := store.Snapshot()
	snap.User.Weapons[0] = "Spear"
	snap.Current.Players[0].Name = "mallory"
	snap.Current.Objectives[0].Occupants[0] = "mallory"
	snap.Current.Boundaries[0] = Point{9, 9}

	assert.Equal(t, "Sword", store.User().Weapons[0])
	g := store.CurrentGame()
	assert.Equal(t, "a", g.Players[0].Name)
	assert.Equal(t, "a", g.Objectives[0].Occupants[0])
	assert.Equal(t, Point{0, 0}, g.Boundaries[0])
}

func TestStore_SetCopiesInput(t *testing.T) {
	u := User{Weapons: []string{"Sword"}}
	store := NewStore(u)
	u.Weapons[0] = "Spear"
	assert.Equal(t, []string{"Sword"}, store.User().Weapons)

	g := Game{Players: []Player{{Name: "a"}}}
	store.SetCurrentGame(g)
	g.Players[0].Name = "b"
	assert.Equal(t, "a", store.CurrentGame().Players[0].Name)
}

func TestStore_Update(t *testing.T) {
	store := NewStore(User{Name: "a"})

	store.UpdateUser(func(u *User) {
		u.Location = Point{1, 2}
		u.Orientation = 270
	})
	store.UpdateCurrentGame(func(g *Game) {
		g.Name = "renamed"
	})

	u := store.User()
	assert.Equal(t, Point{1, 2}, u.Location)
	assert.Equal(t, 270.0, u.Orientation)
	assert.Equal(t, "renamed", store.CurrentGame().Name)

	store.SetUser(User{Name: "b"})
	assert.Equal(t, "b", store.User().Name)
}

func TestStore_UpdateDoesNotLeakReferences(t *testing.T) {
	store := NewStore(User{Weapons: []string{"Sword"}})
	store.SetCurrentGame(Game{Players: []Player{{Name: "a"}}})

	var weapons []string
	store.UpdateUser(func(u *User) {
		u.Weapons = append(u.Weapons, "Spear")
		weapons = u.Weapons
	})
	var roster []Player
	store.UpdateCurrentGame(func(g *Game) {
		g.Name = "renamed"
		roster = g.Players
	})

	// writes through retained references stay outside the store
	weapons[0] = "Laser"
	roster[0].Name = "mallory"

	assert.Equal(t, []string{"Sword", "Spear"}, store.User().Weapons)
	g := store.CurrentGame()
	assert.Equal(t, "renamed", g.Name)
	assert.Equal(t, "a", g.Players[0].Name)
}

func TestStore_CurrentGameStarted(t *testing.T) {
	store := NewStore(User{})
	assert.False(t, store.CurrentGame().Started())

	store.UpdateCurrentGame(func(g *Game) { g.StartTime = "2026-10-19T12:00:00Z" })
	assert.True(t, store.CurrentGame().Started())
}

func TestStore_SelectDiscovered(t *testing.T) {
	store := NewStore(User{})
	d, _ := newTestDispatcher(t, store)
	require.NoError(t, d.Apply(AvailableGames{Games: []Game{{ID: "g1", Name: "First"}, {ID: "g2", Name: "Second"}}}))

	assert.False(t, store.SelectDiscovered("g9"))
	assert.Equal(t, Game{}, store.CurrentGame())

	assert.True(t, store.SelectDiscovered("g2"))
	assert.Equal(t, "Second", store.CurrentGame().Name)
	assert.Len(t, store.DiscoveredGames(), 2)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(User{Name: "a"})
	store.SetCurrentGame(gameWithPickup())
	d, _ := newTestDispatcher(t, store)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = d.Apply(VitalsUpdate{Health: i, Armor: i})
			_ = d.Apply(GameUpdate{Players: []PlayerPosition{{Name: "a", Location: Point{float64(i), 0}}}})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := store.Snapshot()
				// health and armor are written together
				if snap.User.Health != snap.User.Armor {
					t.Errorf("torn read: health %d armor %d", snap.User.Health, snap.User.Armor)
					return
				}
				_ = store.CurrentGame().Players[0].Location
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 199, store.User().Health)
}
