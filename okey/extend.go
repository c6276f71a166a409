package okey

import "okey81-lite/tile"

// ExtendResult 接牌判定。Fits 为 true 时 NewMeld 是接入后的新组，
// 原组不被修改。
type ExtendResult struct {
	Fits    bool
	NewMeld Meld
	Reason  string
}

// CanExtend 判定一张牌能否接到一个已开的组上。
// 对子永远封闭；同点组只能 3→4；顺子只能接在两端，
// 端点由实牌范围加上头尾的万能牌共同决定。
func CanExtend(candidate tile.Tile, meld Meld, ok Okey) ExtendResult {
	if meld.Kind == MeldPair || len(meld.Tiles) == 2 {
		return ExtendResult{Reason: "çift grubuna taş eklenemez"}
	}
	switch meld.Kind {
	case MeldSet:
		return trySetExtension(candidate, meld, ok)
	case MeldRun:
		return tryRunExtension(candidate, meld, ok)
	}
	return ExtendResult{Reason: "bilinmeyen grup türü"}
}

func trySetExtension(candidate tile.Tile, meld Meld, ok Okey) ExtendResult {
	if len(meld.Tiles) != 3 {
		return ExtendResult{Reason: "per grubu zaten dolu"}
	}

	rs := resolveTiles(meld.Tiles, ok)
	claimed := map[tile.Color]bool{}
	fakes := 0
	num := -1
	for _, r := range rs {
		switch {
		case r.fake:
			fakes++
		case r.wild:
			fakes++
		default:
			claimed[r.color] = true
			num = r.num
		}
	}
	if len(claimed)+fakes >= 4 {
		return ExtendResult{Reason: "per grubunda yer yok"}
	}

	if ok.IsWild(candidate) {
		return appended(meld, candidate, false)
	}
	if num >= 0 && candidate.Number != num {
		return ExtendResult{Reason: "sayı uyuşmuyor"}
	}
	if claimed[candidate.Color] {
		return ExtendResult{Reason: "renk zaten kullanılmış"}
	}
	return appended(meld, candidate, false)
}

func tryRunExtension(candidate tile.Tile, meld Meld, ok Okey) ExtendResult {
	rs := resolveTiles(meld.Tiles, ok)

	firstConcrete, lastConcrete := -1, -1
	for i, r := range rs {
		if !r.wild {
			if firstConcrete < 0 {
				firstConcrete = i
			}
			lastConcrete = i
		}
	}
	if firstConcrete < 0 {
		// 全万能顺子：任何一端都开放。
		return appended(meld, candidate, false)
	}

	// 头尾的万能牌把实际范围各拓宽一格。
	runStart := rs[firstConcrete].num - firstConcrete
	runEnd := rs[lastConcrete].num + (len(rs) - 1 - lastConcrete)

	color := rs[firstConcrete].color

	if ok.IsWild(candidate) {
		if runStart-1 >= 1 {
			return appended(meld, candidate, true)
		}
		if runEnd+1 <= 13 {
			return appended(meld, candidate, false)
		}
		return ExtendResult{Reason: "serinin iki ucu da kapalı"}
	}

	if candidate.Color != color {
		return ExtendResult{Reason: "renk uyuşmuyor"}
	}
	switch candidate.Number {
	case runStart - 1:
		if runStart-1 < 1 {
			return ExtendResult{Reason: "seri 1'in altına inemez"}
		}
		return appended(meld, candidate, true)
	case runEnd + 1:
		if runEnd+1 > 13 {
			return ExtendResult{Reason: "seri 13'ü aşamaz"}
		}
		return appended(meld, candidate, false)
	}
	return ExtendResult{Reason: "taş serinin ucuna uymuyor"}
}

func appended(meld Meld, t tile.Tile, front bool) ExtendResult {
	nm := meld.Clone()
	if front {
		nm.Tiles = append(tile.List{t}, nm.Tiles...)
	} else {
		nm.Tiles = append(nm.Tiles, t)
	}
	return ExtendResult{Fits: true, NewMeld: nm}
}
