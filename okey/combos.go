package okey

import (
	"sort"

	"okey81-lite/tile"
)

// GroupResult 验牌结果。Valid 为 false 时 Reason 给出玩家可读的原因。
type GroupResult struct {
	Valid  bool
	Kind   MeldKind
	Reason string
}

// ValidateGroup 判定一组牌是否构成合法的顺子/同点组/对子。
//
// 判定顺序：2 张只可能是对子；3 张以上先试同点组再试顺子，
// 先命中者生效。少于 2 张是调用方错误，返回 ErrTooFewTiles。
func ValidateGroup(tiles []tile.Tile, ok Okey) (GroupResult, error) {
	if len(tiles) < 2 {
		return GroupResult{}, ErrTooFewTiles
	}

	wilds := 0
	concretes := make([]tile.Tile, 0, len(tiles))
	for _, t := range tiles {
		if ok.IsWild(t) {
			wilds++
		} else {
			concretes = append(concretes, t)
		}
	}

	if len(tiles) == 2 {
		if checkPair(concretes, wilds) {
			return GroupResult{Valid: true, Kind: MeldPair}, nil
		}
		return GroupResult{Reason: "iki taş çift oluşturmuyor"}, nil
	}

	if checkSet(concretes, wilds, len(tiles)) {
		return GroupResult{Valid: true, Kind: MeldSet}, nil
	}
	if checkRun(concretes, wilds) {
		return GroupResult{Valid: true, Kind: MeldRun}, nil
	}
	return GroupResult{Reason: "grup ne seri ne per"}, nil
}

// checkPair 对子：两张同点同色，或一万能一实牌，或双万能。
func checkPair(concretes []tile.Tile, wilds int) bool {
	switch wilds {
	case 2:
		return true
	case 1:
		return len(concretes) == 1
	}
	if len(concretes) != 2 {
		return false
	}
	a, b := concretes[0], concretes[1]
	return a.Number == b.Number && a.Color == b.Color
}

// checkSet 同点组（per）：实牌同点异色，总张数 3-4，
// 已占花色 + 万能数不超过 4。全万能 3-4 张也算。
func checkSet(concretes []tile.Tile, wilds, total int) bool {
	if total < 3 || total > 4 {
		return false
	}
	if len(concretes) == 0 {
		return true
	}
	num := concretes[0].Number
	colors := map[tile.Color]bool{}
	for _, t := range concretes {
		if t.Number != num {
			return false
		}
		if colors[t.Color] {
			return false
		}
		colors[t.Color] = true
	}
	return len(colors)+wilds <= 4
}

// checkRun 顺子（seri）：实牌同色、点数互异。排序后内部空隙
// 必须恰好能用万能牌填满，余下的万能牌先向上延伸，越过 13 的
// 部分折回下端；最终范围必须落在 [1,13] 内。12-13-1 永远不合法。
func checkRun(concretes []tile.Tile, wilds int) bool {
	if len(concretes)+wilds < 3 {
		return false
	}
	if len(concretes) == 0 {
		return true
	}

	color := concretes[0].Color
	nums := make([]int, 0, len(concretes))
	seen := map[int]bool{}
	for _, t := range concretes {
		if t.Color != color {
			return false
		}
		if seen[t.Number] {
			return false
		}
		seen[t.Number] = true
		nums = append(nums, t.Number)
	}
	sort.Ints(nums)

	gaps := 0
	for i := 1; i < len(nums); i++ {
		gaps += nums[i] - nums[i-1] - 1
	}
	if gaps > wilds {
		return false
	}
	spare := wilds - gaps

	start, end := nums[0], nums[len(nums)-1]
	end += spare
	if end > 13 {
		start -= end - 13
		end = 13
	}
	return start >= 1
}
