package views

import (
	"fmt"
	"time"

	"github.com/ianremillard/vaultlink/internal/graph"
)

// statusFlags lists the "special state" booleans in priority order, the
// same order player.py checks them in: the first one set to true wins.
var statusFlags = []struct {
	key   string
	label string
}{
	{"IsDataUnavailable", "data unavailable"},
	{"IsPlayerDead", "dead"},
	{"IsLoading", "loading"},
	{"IsInAutoVanity", "in auto vanity"},
	{"IsMenuOpen", "in menu"},
	{"IsPipboyNotEquipped", "no pipboy"},
	{"IsPlayerPipboyLocked", "pipboy locked"},
	{"IsPlayerMovementLocked", "movement locked"},
	{"IsInVats", "in vats"},
	{"IsInVatsPlayback", "in vats playback"},
	{"IsPlayerInDialogue", "in dialogue"},
	{"IsInAnimation", "in animation"},
}

var limbParts = []string{"Head", "RLeg", "RArm", "LLeg", "LArm", "Torso"}

// Player is the materialised subset of the root object player.py exposes
// as properties. Status is "" when the player is in no special state.
type Player struct {
	Status   string
	Location any
	X, Y     float64
	Limbs    map[string]float64
	Name     string
	HP       float64
	MaxHP    float64
	Level    float64
	Weight   float64
	MaxWeight float64
	Hour     float64
	Time     time.Time
	Perks    map[string]float64

	Radio          string // "" when no station is active
	AvailableRadios []string

	Special     []float64
	BaseSpecial []float64
}

// Locked reports whether the player is in a special state that callers
// should avoid issuing commands during (player.py: "indicates you
// shouldn't try to make changes right now").
func (p Player) Locked() bool {
	return p.Status != ""
}

// LoadPlayer materialises the Player view from s.
func LoadPlayer(s *graph.Snapshot) (Player, error) {
	root, err := materializeRoot(s)
	if err != nil {
		return Player{}, err
	}

	var p Player

	status, err := computeStatus(root)
	if err != nil {
		return Player{}, err
	}
	p.Status = status

	loc, err := computeLocation(root)
	if err != nil {
		return Player{}, err
	}
	p.Location = loc

	x, y, err := computeCoordinates(root)
	if err != nil {
		return Player{}, err
	}
	p.X, p.Y = x, y

	limbs, err := computeLimbs(root)
	if err != nil {
		return Player{}, err
	}
	p.Limbs = limbs

	info, err := childMap(root, "PlayerInfo")
	if err != nil {
		return Player{}, err
	}
	if p.Name, err = childString(info, "PlayerName"); err != nil {
		return Player{}, err
	}
	if p.HP, err = childNumber(info, "CurrHP"); err != nil {
		return Player{}, err
	}
	if p.MaxHP, err = childNumber(info, "MaxHP"); err != nil {
		return Player{}, err
	}
	level, progress, err := computeLevel(info)
	if err != nil {
		return Player{}, err
	}
	p.Level = level + progress
	if p.Weight, err = childNumber(info, "CurrWeight"); err != nil {
		return Player{}, err
	}
	if p.MaxWeight, err = childNumber(info, "MaxWeight"); err != nil {
		return Player{}, err
	}
	if p.Hour, err = childNumber(info, "TimeHour"); err != nil {
		return Player{}, err
	}
	t, err := computeTime(info)
	if err != nil {
		return Player{}, err
	}
	p.Time = t

	perks, err := computePerks(root)
	if err != nil {
		return Player{}, err
	}
	p.Perks = perks

	radio, available, err := computeRadio(root)
	if err != nil {
		return Player{}, err
	}
	p.Radio = radio
	p.AvailableRadios = available

	special, base, err := computeSpecial(root)
	if err != nil {
		return Player{}, err
	}
	p.Special = special
	p.BaseSpecial = base

	return p, nil
}

func computeStatus(root map[string]any) (string, error) {
	status, err := childMap(root, "Status")
	if err != nil {
		return "", err
	}
	for _, flag := range statusFlags {
		v, err := childBool(status, flag.key)
		if err != nil {
			continue // not every flag is guaranteed present on a partial snapshot
		}
		if v {
			return flag.label, nil
		}
	}
	return "", nil
}

func computeLocation(root map[string]any) (any, error) {
	m, err := childMap(root, "Map")
	if err != nil {
		return nil, err
	}
	cell, cellErr := field(m, "CurrCell")
	if cellErr == nil {
		if s, ok := cell.(string); !ok || s != "" {
			return cell, nil
		}
	}
	return field(m, "CurrWorldspace")
}

func computeCoordinates(root map[string]any) (float64, float64, error) {
	m, err := childMap(root, "Map")
	if err != nil {
		return 0, 0, err
	}
	world, err := childMap(m, "World")
	if err != nil {
		return 0, 0, err
	}
	player, err := childMap(world, "Player")
	if err != nil {
		return 0, 0, err
	}
	x, err := childNumber(player, "X")
	if err != nil {
		return 0, 0, err
	}
	y, err := childNumber(player, "Y")
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func computeLimbs(root map[string]any) (map[string]float64, error) {
	stats, err := childMap(root, "Stats")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(limbParts))
	for _, part := range limbParts {
		v, err := childNumber(stats, part+"Condition")
		if err != nil {
			return nil, err
		}
		out[part] = v / 100.0
	}
	return out, nil
}

func computeLevel(info map[string]any) (level, progress float64, err error) {
	level, err = childNumber(info, "XPLevel")
	if err != nil {
		return 0, 0, err
	}
	progress, err = childNumber(info, "XPProgressPct")
	if err != nil {
		return 0, 0, err
	}
	return level, progress, nil
}

func computeTime(info map[string]any) (time.Time, error) {
	year, err := childNumber(info, "DateYear")
	if err != nil {
		return time.Time{}, err
	}
	month, err := childNumber(info, "DateMonth")
	if err != nil {
		return time.Time{}, err
	}
	day, err := childNumber(info, "DateDay")
	if err != nil {
		return time.Time{}, err
	}
	hour, err := childNumber(info, "TimeHour")
	if err != nil {
		return time.Time{}, err
	}
	base := time.Date(2000+int(year), time.Month(int(month)), int(day), 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(hour * float64(time.Hour))), nil
}

func computePerks(root map[string]any) (map[string]float64, error) {
	list, err := childSlice(root, "Perks")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for i, entry := range list {
		m, err := asMap(entry, "Perks[]")
		if err != nil {
			return nil, err
		}
		name, err := childString(m, "Name")
		if err != nil {
			return nil, err
		}
		rank, err := childNumber(m, "Rank")
		if err != nil {
			return nil, err
		}
		if name == "" || rank == 0 {
			continue // hidden or unranked perk, player.py skips these too
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: duplicate perk name at Perks[%d]", ErrMissingField, i)
		}
		out[name] = rank
	}
	return out, nil
}

func computeRadio(root map[string]any) (active string, available []string, err error) {
	list, err := childSlice(root, "Radio")
	if err != nil {
		return "", nil, err
	}
	for _, entry := range list {
		m, err := asMap(entry, "Radio[]")
		if err != nil {
			return "", nil, err
		}
		text, err := childString(m, "text")
		if err != nil {
			return "", nil, err
		}
		isActive, _ := childBool(m, "active")
		if isActive {
			active = text
		}
		inRange, _ := childBool(m, "inRange")
		if inRange {
			available = append(available, text)
		}
	}
	return active, available, nil
}

func computeSpecial(root map[string]any) (special, base []float64, err error) {
	list, err := childSlice(root, "Special")
	if err != nil {
		return nil, nil, err
	}
	special = make([]float64, len(list))
	base = make([]float64, len(list))
	for i, entry := range list {
		m, err := asMap(entry, "Special[]")
		if err != nil {
			return nil, nil, err
		}
		value, err := childNumber(m, "Value")
		if err != nil {
			return nil, nil, err
		}
		modifier, err := childNumber(m, "Modifier")
		if err != nil {
			return nil, nil, err
		}
		special[i] = value
		base[i] = value - modifier
	}
	return special, base, nil
}
