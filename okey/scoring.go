package okey

import "okey81-lite/tile"

// RunSetHeadBand seri/per 开牌的“kafa”档位。
// 101-120 → -100，121 以上 → -200。
func RunSetHeadBand(total int) int {
	switch {
	case total >= 121:
		return DoubleHeadAdjust
	case total >= 101:
		return HeadAdjustment
	}
	return 0
}

// PairHeadBand 对子开牌档位：5 对 → -100，6 对以上 → -200。
func PairHeadBand(pairs int) int {
	switch {
	case pairs >= 6:
		return DoubleHeadAdjust
	case pairs == 5:
		return HeadAdjustment
	}
	return 0
}

// RoundPenalty 回合结束时单个非赢家的罚分。
//
// 未开牌：+100；未开牌且拒绝过许可：+200。
// 已开牌：手里剩牌点数之和，真 OKEY 记 0，印花牌记 OKEY 点数；
// 宣布过 çifte 或拒绝过许可的翻倍。
func RoundPenalty(opened bool, rack tile.List, ok Okey,
	declaredDouble, refusedPermission bool) int {

	if !opened {
		if refusedPermission {
			return RefusedPenalty
		}
		return UnopenedPenalty
	}

	total := 0
	for _, t := range rack {
		total += ok.TileValue(t)
	}
	if declaredDouble || refusedPermission {
		total *= 2
	}
	return total
}
