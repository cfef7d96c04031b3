package views

import (
	"github.com/ianremillard/vaultlink/internal/graph"
)

// itemTypeKeys are the Inventory object's per-category keys, in the
// order inventory.py's ITEM_TYPES dict declares them.
var itemTypeKeys = []string{"29", "30", "35", "43", "44", "47", "48", "50"}

const (
	equipNotEquipped = 0
	equipClothing    = 1
	equipGrenade     = 3
	equipWeapon      = 4
)

// Item is one entry from an inventory category list (inventory.py's
// Item class). Favorite/FavoriteSlot/Equipped are nil when the
// underlying field reports the item doesn't support that concept, the
// same three-valued logic the Python properties return (True/False/None).
type Item struct {
	Name   string
	Count  float64
	Cost   float64
	Weight float64

	Favorite     *bool
	FavoriteSlot *int
	Equipped     *bool

	HandleID float64
	StackID  float64

	// equipStateHint is the raw equipState this Item was decoded from,
	// kept around so findEquip can match a specific equip slot rather
	// than just the equipped bool.
	equipStateHint int
}

// Inventory is the materialised "Inventory" subtree of the root object.
type Inventory struct {
	Version float64

	Stimpak *Item
	Radaway *Item

	Apparel   []Item
	Notes     []Item
	Misc      []Item
	Weapons   []Item
	Ammo      []Item
	Keys      []Item
	Aid       []Item
	Holotapes []Item

	Weapon  *Item
	Grenade *Item
	Wearing []Item
}

// Items returns every item across all categories, in ITEM_TYPES order.
func (inv Inventory) Items() []Item {
	var all []Item
	all = append(all, inv.Apparel...)
	all = append(all, inv.Notes...)
	all = append(all, inv.Misc...)
	all = append(all, inv.Weapons...)
	all = append(all, inv.Ammo...)
	all = append(all, inv.Keys...)
	all = append(all, inv.Aid...)
	all = append(all, inv.Holotapes...)
	return all
}

// LoadInventory materialises the Inventory view from s.
func LoadInventory(s *graph.Snapshot) (Inventory, error) {
	root, err := materializeRoot(s)
	if err != nil {
		return Inventory{}, err
	}
	inv, err := childMap(root, "Inventory")
	if err != nil {
		return Inventory{}, err
	}

	var out Inventory
	if out.Version, err = childNumber(inv, "Version"); err != nil {
		return Inventory{}, err
	}

	categories := make(map[string][]Item, len(itemTypeKeys))
	for _, key := range itemTypeKeys {
		items, err := decodeItemList(inv, key)
		if err != nil {
			return Inventory{}, err
		}
		categories[key] = items
	}
	out.Apparel = categories["29"]
	out.Notes = categories["30"]
	out.Misc = categories["35"]
	out.Weapons = categories["43"]
	out.Ammo = categories["44"]
	out.Keys = categories["47"]
	out.Aid = categories["48"]
	out.Holotapes = categories["50"]

	all := out.Items()
	out.Weapon = findSingleEquip(all, equipWeapon)
	out.Grenade = findSingleEquip(all, equipGrenade)
	out.Wearing = findEquip(all, equipClothing)

	if stimpakID, ok, err := objectReference(inv, "stimpakObjectIDIsValid", "stimpakObjectID"); err != nil {
		return Inventory{}, err
	} else if ok {
		out.Stimpak = findByHandleID(all, stimpakID)
	}
	if radawayID, ok, err := objectReference(inv, "radawayObjectIDIsValid", "radawayObjectID"); err != nil {
		return Inventory{}, err
	} else if ok {
		out.Radaway = findByHandleID(all, radawayID)
	}

	return out, nil
}

func objectReference(inv map[string]any, validKey, idKey string) (id float64, ok bool, err error) {
	valid, err := childBool(inv, validKey)
	if err != nil {
		return 0, false, err
	}
	if !valid {
		return 0, false, nil
	}
	id, err = childNumber(inv, idKey)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func findByHandleID(items []Item, handleID float64) *Item {
	for i := range items {
		if items[i].HandleID == handleID {
			return &items[i]
		}
	}
	return nil
}

func findEquip(items []Item, state int) []Item {
	var out []Item
	for _, item := range items {
		if item.Equipped != nil && *item.Equipped && equipStateOf(item) == state {
			out = append(out, item)
		}
	}
	return out
}

// equipStateOf recovers the raw equipState an Item's three-valued
// Equipped/Favorite fields were derived from, for findEquip's category
// matching (inventory.py's _find_equip matches on the raw int, not just
// the equipped bool).
func equipStateOf(item Item) int {
	if item.Equipped == nil {
		return equipNotEquipped
	}
	if !*item.Equipped {
		return equipNotEquipped
	}
	return item.equipStateHint
}

func findSingleEquip(items []Item, state int) *Item {
	matches := findEquip(items, state)
	if len(matches) != 1 {
		return nil
	}
	return &matches[0]
}

func decodeItemList(inv map[string]any, key string) ([]Item, error) {
	list, err := childSlice(inv, key)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(list))
	for _, entry := range list {
		m, err := asMap(entry, "Inventory["+key+"][]")
		if err != nil {
			return nil, err
		}
		item, err := decodeItem(m)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(m map[string]any) (Item, error) {
	var item Item
	var err error
	if item.Name, err = childString(m, "text"); err != nil {
		return Item{}, err
	}
	if item.Count, err = childNumber(m, "count"); err != nil {
		return Item{}, err
	}
	if item.HandleID, err = childNumber(m, "HandleID"); err != nil {
		return Item{}, err
	}
	if item.StackID, err = childNumber(m, "StackID"); err != nil {
		return Item{}, err
	}

	if cards, err := childSlice(m, "itemCardInfoList"); err == nil {
		item.Cost, item.Weight = extractCostWeight(cards)
	}

	canFavorite, err := childBool(m, "canFavorite")
	if err == nil && canFavorite {
		slot, err := childNumber(m, "favorite")
		if err == nil {
			fav := slot >= 0
			item.Favorite = &fav
			if fav {
				s := int(slot)
				item.FavoriteSlot = &s
			}
		}
	}

	state, err := childNumber(m, "equipState")
	if err == nil {
		eq := int(state) != equipNotEquipped
		item.Equipped = &eq
		item.equipStateHint = int(state)
	}

	return item, nil
}

func extractCostWeight(cards []any) (cost, weight float64) {
	for _, c := range cards {
		card, ok := c.(map[string]any)
		if !ok {
			continue
		}
		text, _ := card["text"].(string)
		value, ok := asNumberOK(card["Value"])
		if !ok {
			continue
		}
		switch text {
		case "$val":
			cost = value
		case "$wt":
			weight = value
		}
	}
	return cost, weight
}

func asNumberOK(v any) (float64, bool) {
	f, err := asNumber(v, "")
	if err != nil {
		return 0, false
	}
	return f, true
}
