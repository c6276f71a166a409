package okey

import "okey81-lite/tile"

// IsPlayable 活牌（işlek）判定：万能牌永远是活牌；
// 其余看能否接到桌面上任何一个已开的组。
// 对子组（2 张）永远封闭，不参与判定。
func IsPlayable(t tile.Tile, tableMelds []Meld, ok Okey) bool {
	if ok.IsWild(t) {
		return true
	}
	for _, m := range tableMelds {
		if len(m.Tiles) == 2 {
			continue
		}
		if CanExtend(t, m, ok).Fits {
			return true
		}
	}
	return false
}

// PlayableTiles 牌架里所有活牌的 id。
func PlayableTiles(rack tile.List, tableMelds []Meld, ok Okey) []int {
	var out []int
	for _, t := range rack {
		if IsPlayable(t, tableMelds, ok) {
			out = append(out, t.ID)
		}
	}
	return out
}
