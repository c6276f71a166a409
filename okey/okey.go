package okey

import "okey81-lite/tile"

// Okey 本局的万能牌定义，由指示牌推导。
// 指示牌是假 OKEY 时 Joker 为 true：该局没有具体点数，
// 只有两张印花牌是万能牌。
type Okey struct {
	Number int
	Color  tile.Color
	Joker  bool
}

// DeriveOkey 指示牌 +1（13 绕回 1），同色。
func DeriveOkey(indicator tile.Tile) Okey {
	if indicator.FakePrint {
		return Okey{Number: 0, Color: tile.ColorJoker, Joker: true}
	}
	n := indicator.Number + 1
	if n > 13 {
		n = 1
	}
	return Okey{Number: n, Color: indicator.Color}
}

// IsWild 真 OKEY 或印花牌。Joker 局只有印花牌算。
func (o Okey) IsWild(t tile.Tile) bool {
	if t.FakePrint {
		return true
	}
	if o.Joker {
		return false
	}
	return t.Number == o.Number && t.Color == o.Color
}

// TileValue 计分值：真 OKEY 充当万能时记 0，印花牌记 OKEY 的点数，
// 普通牌记自身点数。
func (o Okey) TileValue(t tile.Tile) int {
	if t.FakePrint {
		return o.Number
	}
	if o.IsWild(t) {
		return 0
	}
	return t.Number
}

// resolvedTile 单次求值用的临时视图，绝不写回牌实体。
// 印花牌借用 OKEY 的点数；花色按所在组的主导色临时确定。
type resolvedTile struct {
	num   int
	color tile.Color
	wild  bool
	fake  bool
	src   tile.Tile
}

func resolveTiles(tiles []tile.Tile, ok Okey) []resolvedTile {
	dominant := dominantColor(tiles, ok)
	out := make([]resolvedTile, 0, len(tiles))
	for _, t := range tiles {
		rt := resolvedTile{src: t}
		switch {
		case t.FakePrint:
			rt.num = ok.Number
			rt.color = dominant
			rt.wild = true
			rt.fake = true
		case ok.IsWild(t):
			rt.num = t.Number
			rt.color = t.Color
			rt.wild = true
		default:
			rt.num = t.Number
			rt.color = t.Color
		}
		out = append(out, rt)
	}
	return out
}

func dominantColor(tiles []tile.Tile, ok Okey) tile.Color {
	counts := map[tile.Color]int{}
	best := tile.ColorJoker
	bestN := 0
	for _, t := range tiles {
		if t.FakePrint || ok.IsWild(t) {
			continue
		}
		counts[t.Color]++
		if counts[t.Color] > bestN {
			best = t.Color
			bestN = counts[t.Color]
		}
	}
	return best
}
