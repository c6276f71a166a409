package okey

import "okey81-lite/tile"

// Meld 桌面上一组已开的牌。Tiles 保持摆放顺序；顺子按升序，
// 万能牌占在它所替代的位置上。
type Meld struct {
	Kind  MeldKind
	Tiles tile.List
}

func (m Meld) Clone() Meld {
	return Meld{Kind: m.Kind, Tiles: m.Tiles.Clone()}
}

// AssignedValues 给组里每张牌一个计分值。万能牌取它在组内
// 替代的点数：同点组取组点数，顺子按位置推算，对子取实牌点数。
// 每次调用重新解析，不回写牌实体。
func (m Meld) AssignedValues(ok Okey) []int {
	rs := resolveTiles(m.Tiles, ok)
	out := make([]int, len(rs))

	switch m.Kind {
	case MeldSet:
		num := setNumber(rs, ok)
		for i, r := range rs {
			if r.wild {
				out[i] = num
			} else {
				out[i] = r.num
			}
		}
	case MeldRun:
		ref := -1
		for i, r := range rs {
			if !r.wild {
				ref = i
				break
			}
		}
		for i, r := range rs {
			switch {
			case !r.wild:
				out[i] = r.num
			case ref >= 0:
				out[i] = rs[ref].num + (i - ref)
			default:
				out[i] = ok.Number
			}
		}
	case MeldPair:
		num := ok.Number
		for _, r := range rs {
			if !r.wild {
				num = r.num
			}
		}
		for i := range rs {
			out[i] = num
		}
	}
	return out
}

// Points 组的总分。
func (m Meld) Points(ok Okey) int {
	total := 0
	for _, v := range m.AssignedValues(ok) {
		total += v
	}
	return total
}

func setNumber(rs []resolvedTile, ok Okey) int {
	for _, r := range rs {
		if !r.wild {
			return r.num
		}
	}
	return ok.Number
}

func cloneMelds(melds []Meld) []Meld {
	if melds == nil {
		return nil
	}
	out := make([]Meld, len(melds))
	for i, m := range melds {
		out[i] = m.Clone()
	}
	return out
}
