package okey

import "okey81-lite/tile"

// 牌架：两行各 14 格，空格把牌分隔成组。
const (
	RackSlots = 28
	RackRow   = 14
)

// GroupSlots 把 28 格布局切成连续的组。行尾断组；零值（ID==0）为空格。
func GroupSlots(slots []tile.Tile) [][]tile.Tile {
	var groups [][]tile.Tile
	for row := 0; row < 2; row++ {
		var cur []tile.Tile
		for i := row * RackRow; i < (row+1)*RackRow && i < len(slots); i++ {
			if slots[i].ID == 0 {
				if len(cur) > 0 {
					groups = append(groups, cur)
					cur = nil
				}
				continue
			}
			cur = append(cur, slots[i])
		}
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
	}
	return groups
}

// OpeningResult 开牌评估结果。
type OpeningResult struct {
	Method    OpenMethod
	Melds     []Meld
	Total     int // run/set 开牌的总分
	PairCount int
	HeadBand  int // 0 / -100 / -200，见 scoring.go
}

// EvaluateOpening 评估一次开牌提交。
//
// 首次开牌：所有组都必须合法；全是顺子/同点组则总分须达到门槛，
// 全是对子则至少 4 对。两种组混在一起直接拒绝。宣布过 çifte 的
// 玩家只能用对子开。
//
// 后续开牌（alreadyOpened）：提交的每个组都必须合法且与原先
// 承诺的方式一致，不再检查门槛。
//
// 评估是纯函数：失败时不产生任何副作用。
func EvaluateOpening(slots []tile.Tile, ok Okey, threshold int,
	alreadyOpened bool, method OpenMethod, declaredDouble bool) (OpeningResult, error) {

	groups := GroupSlots(slots)
	if len(groups) == 0 {
		return OpeningResult{}, ErrRule("açılacak grup yok")
	}

	var melds []Meld
	pairs, runsets := 0, 0
	total := 0
	for _, g := range groups {
		res, err := ValidateGroup(g, ok)
		if err != nil {
			return OpeningResult{}, ErrRule("tek taşlık grup açılamaz")
		}
		if !res.Valid {
			return OpeningResult{}, ErrRule(res.Reason)
		}
		m := Meld{Kind: res.Kind, Tiles: tile.List(g).Clone()}
		melds = append(melds, m)
		if res.Kind == MeldPair {
			pairs++
		} else {
			runsets++
			total += m.Points(ok)
		}
	}

	if pairs > 0 && runsets > 0 {
		return OpeningResult{}, ErrRule("çift ve seri/per karışık açılamaz")
	}

	if alreadyOpened {
		switch {
		case method == OpenPair && runsets > 0:
			return OpeningResult{}, ErrRule("çift açan sadece çift işleyebilir")
		case method == OpenRunSet && pairs > 0:
			return OpeningResult{}, ErrRule("seri/per açan çift işleyemez")
		}
		return OpeningResult{Method: method, Melds: melds, Total: total, PairCount: pairs}, nil
	}

	if pairs > 0 {
		if pairs < 4 {
			return OpeningResult{}, ErrRule("çiftten açmak için en az 4 çift gerekir")
		}
		return OpeningResult{
			Method:    OpenPair,
			Melds:     melds,
			PairCount: pairs,
			HeadBand:  PairHeadBand(pairs),
		}, nil
	}

	if declaredDouble {
		return OpeningResult{}, ErrRule("çifte ilan eden sadece çiftten açabilir")
	}
	if total < threshold {
		return OpeningResult{}, ErrRule("puan açma barajının altında")
	}
	return OpeningResult{
		Method:   OpenRunSet,
		Melds:    melds,
		Total:    total,
		HeadBand: RunSetHeadBand(total),
	}, nil
}
