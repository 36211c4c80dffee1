package tfgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, store *Store, opt ...Option) (*Dispatcher, *mockLogger) {
	t.Helper()

	logger := &mockLogger{}
	d, err := NewDispatcher(store, append([]Option{LoggerOption(logger)}, opt...)...)
	require.NoError(t, err)
	return d, logger
}

func gameWithPickup() Game {
	return Game{
		ID:      "g1",
		Players: []Player{{Name: "a", Icon: "x"}, {Name: "b", Icon: "y"}},
		Objectives: []Objective{
			{ID: "CP1", Location: Point{5, 5}, Radius: 3},
		},
		Pickups: []Pickup{{Location: Point{2, 8}, Type: "Health", Amount: 25, Available: true}},
	}
}

func TestDispatch_PlayerListUpdate(t *testing.T) {
	store := NewStore(User{Name: "a"})
	store.SetCurrentGame(gameWithPickup())
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypePlayerListUpdate, `[{"Name":"c","Icon":"z"}]`)))

	assert.Equal(t, []Player{{Name: "c", Icon: "z"}}, store.CurrentGame().Players)
}

func TestDispatch_AvailableGamesExcludesKnown(t *testing.T) {
	store := NewStore(User{})
	d, _ := newTestDispatcher(t, store)

	summary := func(id string) string {
		return `{"ID":"` + id + `","Name":"n","Mode":"Payload","Location":{"X":0,"Y":0},"PlayerList":[]}`
	}

	require.NoError(t, d.Dispatch(record(TypeAvailableGames, `[`+summary("g1")+`,`+summary("g2")+`]`)))
	assert.True(t, store.HasGame("g1"))
	assert.True(t, store.HasGame("g2"))

	before := store.DiscoveredGames()
	require.NoError(t, d.Dispatch(record(TypeAvailableGames, `[`+summary("g2")+`,`+summary("g3")+`,`+summary("g3")+`]`)))

	after := store.DiscoveredGames()
	for _, g := range after {
		for _, known := range before {
			assert.NotEqual(t, known.ID, g.ID, "previously known game %s listed again", g.ID)
		}
	}
	require.Len(t, after, 1, "duplicates within one payload are collapsed")
	assert.Equal(t, "g3", after[0].ID)
}

func TestDispatch_GameInfoMergesRoster(t *testing.T) {
	store := NewStore(User{})
	store.SetCurrentGame(Game{ID: "g1", Name: "First", Players: []Player{{Name: "a", Icon: "x", Team: TeamRed}}})
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypeGameInfo, `{
		"Description":"desc","PlayerLimit":8,"PointLimit":50,"TimeLimit":"0h5m0s",
		"Boundaries":[{"X":0,"Y":0},{"X":1,"Y":0},{"X":1,"Y":1},{"X":0,"Y":1}],
		"PlayerList":[{"Name":"a","Icon":"changed"},{"Name":"b","Icon":"y"}]
	}`)))

	g := store.CurrentGame()
	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, "First", g.Name)
	assert.Equal(t, "desc", g.Description)
	assert.Equal(t, 8, g.MaxPlayers)
	assert.Equal(t, 50, g.MaxPoints)
	assert.Equal(t, 5, g.TimeLimit)
	assert.Len(t, g.Boundaries, 4)
	assert.Equal(t, []Player{{Name: "a", Icon: "x", Team: TeamRed}, {Name: "b", Icon: "y"}}, g.Players)
}

func TestDispatch_JoinGameError(t *testing.T) {
	store := NewStore(User{})
	store.SetCurrentGame(Game{ID: "g1"})

	var seen []Event
	d, _ := newTestDispatcher(t, store, OnEventOption(func(ev Event) { seen = append(seen, ev) }))

	require.NoError(t, d.Dispatch(record(TypeJoinGameError, `"full"`)))

	assert.Equal(t, Game{}, store.CurrentGame())
	assert.Equal(t, []Event{JoinGameError{Reason: "full"}}, seen)
}

func TestDispatch_LeaveGame(t *testing.T) {
	store := NewStore(User{Name: "a", Host: true})
	store.SetCurrentGame(gameWithPickup())
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypeLeaveGame, `{}`)))

	assert.Equal(t, Game{}, store.CurrentGame())
	assert.False(t, store.User().Host)
	assert.Equal(t, "a", store.User().Name)
}

func TestDispatch_GameStartInfo(t *testing.T) {
	store := NewStore(User{})
	store.SetCurrentGame(Game{
		ID:         "g1",
		Players:    []Player{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Objectives: []Objective{{ID: "CP1", Location: Point{5, 5}, Radius: 3, Progress: 10}},
	})
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypeGameStartInfo, gameStartInfoData)))

	g := store.CurrentGame()
	assert.True(t, g.Started())
	assert.Equal(t, TeamRed, g.Players[0].Team)
	assert.Equal(t, TeamBlue, g.Players[1].Team)
	assert.Equal(t, Team(""), g.Players[2].Team, "unlisted player keeps no team")
	require.Len(t, g.Objectives, 1, "known objective is not duplicated")
	assert.Equal(t, 10, g.Objectives[0].Progress)
	assert.Equal(t, []Pickup{{Location: Point{2, 8}, Type: "Health", Amount: 25, Available: true}}, g.Pickups)
	assert.Equal(t, Base{Location: Point{9, 5}, Radius: 4}, g.RedBase)
	assert.Equal(t, Base{Location: Point{1, 5}, Radius: 4}, g.BlueBase)
}

func TestDispatch_GameUpdate(t *testing.T) {
	store := NewStore(User{})
	store.SetCurrentGame(gameWithPickup())
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypeGameUpdate, `{
		"PlayerList":[{"Name":"b","Orientation":180,"Location":{"X":7,"Y":7}}],
		"Points":{"Red":3,"Blue":4},
		"Objectives":[{"ID":"CP1","Occupying":["b"],"BelongsTo":"Blue","Progress":100}]
	}`)))

	g := store.CurrentGame()
	assert.Equal(t, Player{Name: "b", Icon: "y", Orientation: 180, Location: Point{7, 7}}, g.Players[1])
	assert.Equal(t, Player{Name: "a", Icon: "x"}, g.Players[0])
	assert.Equal(t, 3, g.RedPoints)
	assert.Equal(t, 4, g.BluePoints)
	assert.Equal(t, Objective{ID: "CP1", Location: Point{5, 5}, Radius: 3, Owner: TeamBlue, Occupants: []string{"b"}, Progress: 100}, g.Objectives[0])
}

func TestDispatch_GameUpdateUnknownPlayer(t *testing.T) {
	store := NewStore(User{})
	store.SetCurrentGame(gameWithPickup())
	d, _ := newTestDispatcher(t, store)
	before := store.CurrentGame()

	err := d.Dispatch(record(TypeGameUpdate, `{
		"PlayerList":[{"Name":"zed","Orientation":90,"Location":{"X":1,"Y":1}}],
		"Points":{"Red":0,"Blue":0},
		"Objectives":[{"ID":"CP9","Occupying":[],"BelongsTo":"","Progress":0}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, before, store.CurrentGame())
}

func TestDispatch_StatusUpdate(t *testing.T) {
	store := NewStore(User{Status: "Alive"})
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypeStatusUpdate, `"Dead"`)))
	assert.Equal(t, "Dead", store.User().Status)
}

func TestDispatch_StatusUpdateWrongTypeLeavesStatus(t *testing.T) {
	store := NewStore(User{Status: "Alive"})
	d, _ := newTestDispatcher(t, store)

	err := d.Dispatch(record(TypeStatusUpdate, `7`))

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Alive", store.User().Status)
}

func TestDispatch_VitalsUpdate(t *testing.T) {
	store := NewStore(User{Health: 100})
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypeVitalsUpdate, `{"Health":40,"Armor":15}`)))

	u := store.User()
	assert.Equal(t, 40, u.Health)
	assert.Equal(t, 15, u.Armor)
}

func TestDispatch_Gameover(t *testing.T) {
	store := NewStore(User{Name: "a"})
	store.SetCurrentGame(gameWithPickup())
	before := store.Snapshot()

	var seen Event
	d, logger := newTestDispatcher(t, store, OnEventOption(func(ev Event) { seen = ev }))

	require.NoError(t, d.Dispatch(record(TypeGameover, `"Blue"`)))

	assert.Equal(t, Gameover{Winner: "Blue"}, seen)
	assert.Equal(t, before, store.Snapshot(), "game over does not mutate state")
	assert.True(t, logger.has("info", "game over"))
}

func TestDispatch_AcquireWeapon(t *testing.T) {
	store := NewStore(User{})
	d, logger := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypeAcquireWeapon, `"Crossbow"`)))
	require.NoError(t, d.Dispatch(record(TypeAcquireWeapon, `"Spear"`)))

	u := store.User()
	assert.Equal(t, []string{"Crossbow", "Spear"}, u.Weapons)
	assert.Equal(t, "Crossbow", u.SelectedWeapon, "first weapon is selected")
	assert.False(t, logger.has("warn", "acquired weapon missing from catalog"))
}

func TestDispatch_AcquireWeaponOutsideCatalog(t *testing.T) {
	store := NewStore(User{})
	d, logger := newTestDispatcher(t, store, CatalogOption(Catalog{}))

	require.NoError(t, d.Dispatch(record(TypeAcquireWeapon, `"Laser"`)))

	assert.Equal(t, []string{"Laser"}, store.User().Weapons)
	assert.True(t, logger.has("warn", "acquired weapon missing from catalog"))
}

func TestDispatch_PickupUpdate(t *testing.T) {
	store := NewStore(User{})
	store.SetCurrentGame(gameWithPickup())
	d, _ := newTestDispatcher(t, store)

	require.NoError(t, d.Dispatch(record(TypePickupUpdate, `{"Location":{"X":2,"Y":8},"Available":false}`)))
	assert.False(t, store.CurrentGame().Pickups[0].Available)

	require.NoError(t, d.Dispatch(record(TypePickupUpdate, `{"Location":{"X":2,"Y":8},"Available":true}`)))
	assert.True(t, store.CurrentGame().Pickups[0].Available)
}

func TestDispatch_PickupUpdateNoMatch(t *testing.T) {
	store := NewStore(User{})
	store.SetCurrentGame(gameWithPickup())
	before := store.Snapshot()

	called := false
	d, _ := newTestDispatcher(t, store, OnEventOption(func(Event) { called = true }))

	err := d.Dispatch(record(TypePickupUpdate, `{"Location":{"X":3,"Y":8},"Available":false}`))

	assert.ErrorIs(t, err, ErrPickupNotFound)
	assert.Equal(t, before, store.Snapshot())
	assert.False(t, called, "failed events are not reported")
}

func TestDispatch_UnknownType(t *testing.T) {
	store := NewStore(User{})
	before := store.Snapshot()
	d, _ := newTestDispatcher(t, store)

	err := d.Dispatch(record("Teleport", `{}`))

	var ute *UnknownTypeError
	assert.ErrorAs(t, err, &ute)
	assert.Equal(t, before, store.Snapshot())
}

type foreignEvent struct{ LeaveGame }

func TestApply_UnhandledEvent(t *testing.T) {
	d, _ := newTestDispatcher(t, NewStore(User{}))

	assert.Error(t, d.Apply(foreignEvent{}))
}
