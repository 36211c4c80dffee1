package tfgo

import (
	"slices"

	"github.com/pkg/errors"
)

// Dispatcher applies decoded events to a Store.
type Dispatcher struct {
	store   *Store
	catalog Catalog
	logger  Logger
	onEvent func(Event)
}

// NewDispatcher returns a Dispatcher writing to store. Only the catalog,
// logger and event callback options are consulted.
func NewDispatcher(store *Store, opt ...Option) (*Dispatcher, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}
	return newDispatcher(store, opts), nil
}

func newDispatcher(store *Store, opts options) *Dispatcher {
	return &Dispatcher{
		store:   store,
		catalog: opts.catalog,
		logger:  opts.logger,
		onEvent: opts.onEvent,
	}
}

// Dispatch decodes rec and applies it.
func (d *Dispatcher) Dispatch(rec Record) error {
	ev, err := DecodeEvent(rec)
	if err != nil {
		return err
	}
	return d.Apply(ev)
}

// Apply mutates the store according to ev. On error nothing was mutated.
func (d *Dispatcher) Apply(ev Event) error {
	var err error
	switch e := ev.(type) {
	case PlayerListUpdate:
		err = d.store.mutate(func(_ *User, cur *Game, _ *[]Game) error {
			cur.Players = slices.Clone(e.Players)
			return nil
		})

	case AvailableGames:
		err = d.store.mutate(func(_ *User, _ *Game, discovered *[]Game) error {
			var games []Game
			for _, g := range e.Games {
				if containsGame(*discovered, g.ID) || containsGame(games, g.ID) {
					continue
				}
				games = append(games, g.clone())
			}
			*discovered = games
			return nil
		})

	case GameInfo:
		err = d.store.mutate(func(_ *User, cur *Game, _ *[]Game) error {
			cur.Description = e.Description
			cur.MaxPlayers = e.PlayerLimit
			cur.MaxPoints = e.PointLimit
			cur.TimeLimit = e.TimeLimit
			cur.Boundaries = slices.Clone(e.Boundaries)
			for _, p := range e.Players {
				if _, ok := cur.PlayerIndex(p.Name); !ok {
					cur.Players = append(cur.Players, p)
				}
			}
			return nil
		})

	case JoinGameError:
		err = d.store.mutate(func(_ *User, cur *Game, _ *[]Game) error {
			*cur = Game{}
			return nil
		})

	case LeaveGame:
		err = d.store.mutate(func(u *User, cur *Game, _ *[]Game) error {
			*cur = Game{}
			u.Host = false
			return nil
		})

	case GameStartInfo:
		err = d.store.mutate(func(_ *User, cur *Game, _ *[]Game) error {
			for _, pt := range e.Teams {
				if i, ok := cur.PlayerIndex(pt.Name); ok {
					cur.Players[i].Team = pt.Team
				}
			}
			for _, o := range e.Objectives {
				if _, ok := cur.ObjectiveIndex(o.ID); !ok {
					cur.Objectives = append(cur.Objectives, o)
				}
			}
			cur.Pickups = slices.Clone(e.Pickups)
			cur.RedBase = e.RedBase
			cur.BlueBase = e.BlueBase
			cur.StartTime = e.StartTime
			return nil
		})

	case GameUpdate:
		err = d.store.mutate(func(_ *User, cur *Game, _ *[]Game) error {
			for _, p := range e.Players {
				if i, ok := cur.PlayerIndex(p.Name); ok {
					cur.Players[i].Orientation = p.Orientation
					cur.Players[i].Location = p.Location
				}
			}
			cur.RedPoints = e.RedPoints
			cur.BluePoints = e.BluePoints
			for _, o := range e.Objectives {
				if i, ok := cur.ObjectiveIndex(o.ID); ok {
					obj := &cur.Objectives[i]
					obj.Owner = o.Owner
					obj.Progress = o.Progress
					obj.Occupants = slices.Clone(o.Occupants)
				}
			}
			return nil
		})

	case StatusUpdate:
		err = d.store.mutate(func(u *User, _ *Game, _ *[]Game) error {
			u.Status = e.Status
			return nil
		})

	case VitalsUpdate:
		err = d.store.mutate(func(u *User, _ *Game, _ *[]Game) error {
			u.Health = e.Health
			u.Armor = e.Armor
			return nil
		})

	case Gameover:
		d.logger.Info("game over", "winner", e.Winner)

	case AcquireWeapon:
		if _, ok := d.catalog.Lookup(e.Weapon); !ok {
			d.logger.Warn("acquired weapon missing from catalog", "weapon", e.Weapon)
		}
		err = d.store.mutate(func(u *User, _ *Game, _ *[]Game) error {
			u.Weapons = append(u.Weapons, e.Weapon)
			if u.SelectedWeapon == "" {
				u.SelectedWeapon = e.Weapon
			}
			return nil
		})

	case PickupUpdate:
		err = d.store.mutate(func(_ *User, cur *Game, _ *[]Game) error {
			i, ok := cur.PickupIndex(e.Location)
			if !ok {
				return errors.Wrapf(ErrPickupNotFound, "at (%g, %g)", e.Location.X, e.Location.Y)
			}
			cur.Pickups[i].Available = e.Available
			return nil
		})

	default:
		return errors.Errorf("unhandled event %T", ev)
	}

	if err != nil {
		return err
	}
	d.logger.Debug("event applied", "type", ev.Type())
	d.onEvent(ev)
	return nil
}

func containsGame(games []Game, id string) bool {
	return slices.ContainsFunc(games, func(g Game) bool { return g.ID == id })
}
