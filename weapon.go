package tfgo

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Weapon holds the stats of one weapon.
type Weapon struct {
	Name       string
	ClipSize   int
	ShotReload time.Duration
	ClipReload time.Duration
}

// Catalog maps weapon names to stats.
type Catalog map[string]Weapon

// Lookup returns the weapon named name.
func (c Catalog) Lookup(name string) (Weapon, bool) {
	w, ok := c[name]
	return w, ok
}

// DefaultCatalog returns the built-in weapon table.
func DefaultCatalog() Catalog {
	names := []string{
		"Sword", "Shotgun", "Pistol", "Blaster", "Crossbow", "Rifle",
		"Boomerang", "Lightsaber", "Spear", "BanHammer", "BeeSwarm",
	}
	c := make(Catalog, len(names))
	for _, n := range names {
		c[n] = Weapon{Name: n, ClipSize: 1337, ShotReload: time.Second, ClipReload: time.Second}
	}
	return c
}

type catalogFile struct {
	Weapons []struct {
		Name       string `toml:"name"`
		ClipSize   int    `toml:"clip_size"`
		ShotReload string `toml:"shot_reload"`
		ClipReload string `toml:"clip_reload"`
	} `toml:"weapon"`
}

// LoadCatalog reads a TOML file of [[weapon]] tables:
//
//	[[weapon]]
//	name = "Sword"
//	clip_size = 1337
//	shot_reload = "1s"
//	clip_reload = "1s"
func LoadCatalog(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read weapon catalog")
	}
	return ParseCatalog(b)
}

// ParseCatalog decodes TOML catalog data.
func ParseCatalog(b []byte) (Catalog, error) {
	var f catalogFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "decode weapon catalog")
	}

	c := make(Catalog, len(f.Weapons))
	for i, w := range f.Weapons {
		if w.Name == "" {
			return nil, errors.Errorf("weapon %d has no name", i+1)
		}
		if _, dup := c[w.Name]; dup {
			return nil, errors.Errorf("weapon %q defined twice", w.Name)
		}
		shot, err := parseReload(w.ShotReload)
		if err != nil {
			return nil, errors.Wrapf(err, "weapon %q shot_reload", w.Name)
		}
		clip, err := parseReload(w.ClipReload)
		if err != nil {
			return nil, errors.Wrapf(err, "weapon %q clip_reload", w.Name)
		}
		c[w.Name] = Weapon{Name: w.Name, ClipSize: w.ClipSize, ShotReload: shot, ClipReload: clip}
	}
	return c, nil
}

func parseReload(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
