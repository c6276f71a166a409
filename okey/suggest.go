package okey

import (
	"sort"
	"time"

	"okey81-lite/tile"
)

// Suggestion 给客户端提示和机器人用的拆牌建议。
// 非权威：真正能不能开牌仍由 EvaluateOpening 说了算。
type Suggestion struct {
	Method   OpenMethod
	Melds    []Meld
	Leftover tile.List
	Total    int // run/set 组的总分
	Pairs    int
}

// SuggestMelds 在时间预算内给一手牌找一个尽量好的拆法。
// method 指定只找 seri/per 还是只找对子；贪心 + 几种扫描顺序取最优。
func SuggestMelds(hand tile.List, ok Okey, method OpenMethod, budget time.Duration) Suggestion {
	deadline := time.Now().Add(budget)

	if method == OpenPair {
		return suggestPairs(hand, ok)
	}

	best := Suggestion{Method: OpenRunSet, Leftover: hand.Clone()}
	for pass := 0; pass < 4; pass++ {
		if budget > 0 && time.Now().After(deadline) {
			break
		}
		cand := suggestRunSets(hand, ok, pass%2 == 0, pass/2 == 0)
		if cand.Total > best.Total {
			best = cand
		}
	}
	return best
}

// suggestRunSets 一次贪心扫描。runsFirst 决定先抽顺子还是先抽同点组，
// longRuns 决定顺子按最长切还是按 3 张切（留边牌给同点组借用）。
func suggestRunSets(hand tile.List, ok Okey, runsFirst, longRuns bool) Suggestion {
	wilds := make(tile.List, 0, 4)
	pool := make(tile.List, 0, len(hand))
	for _, t := range hand {
		if ok.IsWild(t) {
			wilds = append(wilds, t)
		} else {
			pool = append(pool, t)
		}
	}

	var melds []Meld
	if runsFirst {
		pool = takeRuns(&melds, pool, longRuns)
		pool = takeSets(&melds, pool)
	} else {
		pool = takeSets(&melds, pool)
		pool = takeRuns(&melds, pool, longRuns)
	}

	// 万能牌补残组：先补 2 张差一张的顺子/同点组。
	pool, wilds = patchWithWilds(&melds, pool, wilds, ok)

	leftover := append(pool, wilds...)
	out := Suggestion{Method: OpenRunSet, Melds: melds, Leftover: leftover}
	for _, m := range melds {
		out.Total += m.Points(ok)
	}
	return out
}

func takeRuns(melds *[]Meld, pool tile.List, long bool) tile.List {
	byColor := map[tile.Color]tile.List{}
	for _, t := range pool {
		byColor[t.Color] = append(byColor[t.Color], t)
	}

	var rest tile.List
	for _, c := range tile.Colors {
		ts := byColor[c]
		sort.Slice(ts, func(i, j int) bool { return ts[i].Number < ts[j].Number })

		var chain tile.List
		flush := func() {
			if len(chain) >= 3 {
				if long {
					*melds = append(*melds, Meld{Kind: MeldRun, Tiles: chain.Clone()})
				} else {
					// 3 张一切，边角留给同点组。
					i := 0
					for ; i+3 <= len(chain); i += 3 {
						*melds = append(*melds, Meld{Kind: MeldRun, Tiles: chain[i : i+3].Clone()})
					}
					rest = append(rest, chain[i:]...)
				}
			} else {
				rest = append(rest, chain...)
			}
			chain = nil
		}
		for _, t := range ts {
			if len(chain) > 0 {
				prev := chain[len(chain)-1].Number
				if t.Number == prev {
					rest = append(rest, t) // 重复点数进剩余池
					continue
				}
				if t.Number != prev+1 {
					flush()
				}
			}
			chain = append(chain, t)
		}
		flush()
	}
	return rest
}

func takeSets(melds *[]Meld, pool tile.List) tile.List {
	byNum := map[int]tile.List{}
	for _, t := range pool {
		byNum[t.Number] = append(byNum[t.Number], t)
	}

	var rest tile.List
	for n := 1; n <= 13; n++ {
		ts := byNum[n]
		if len(ts) == 0 {
			continue
		}
		var set tile.List
		colors := map[tile.Color]bool{}
		for _, t := range ts {
			if !colors[t.Color] && len(set) < 4 {
				colors[t.Color] = true
				set = append(set, t)
			} else {
				rest = append(rest, t)
			}
		}
		if len(set) >= 3 {
			*melds = append(*melds, Meld{Kind: MeldSet, Tiles: set})
		} else {
			rest = append(rest, set...)
		}
	}
	return rest
}

// patchWithWilds 用万能牌把差一张的组补成 3 张。
func patchWithWilds(melds *[]Meld, pool, wilds tile.List, ok Okey) (tile.List, tile.List) {
	if len(wilds) == 0 {
		return pool, wilds
	}

	// 同色相邻或隔一的两张 + 万能 → 顺子。
	for i := 0; i < len(pool) && len(wilds) > 0; i++ {
		for j := i + 1; j < len(pool); j++ {
			a, b := pool[i], pool[j]
			if a.Color != b.Color {
				continue
			}
			diff := b.Number - a.Number
			if diff < 0 {
				diff = -diff
			}
			if diff != 1 && diff != 2 {
				continue
			}
			lo, hi := a, b
			if lo.Number > hi.Number {
				lo, hi = hi, lo
			}
			var cand tile.List
			switch {
			case diff == 2:
				cand = tile.List{lo, wilds[0], hi} // 万能补中间
			case hi.Number == 13:
				cand = tile.List{wilds[0], lo, hi}
			default:
				cand = tile.List{lo, hi, wilds[0]}
			}
			if res, err := ValidateGroup(cand, ok); err == nil && res.Valid {
				*melds = append(*melds, Meld{Kind: res.Kind, Tiles: cand})
				wilds = wilds[1:]
				pool = removeAt(pool, i, j)
				i--
				break
			}
		}
	}

	// 同点异色两张 + 万能 → 同点组。
	for i := 0; i < len(pool) && len(wilds) > 0; i++ {
		for j := i + 1; j < len(pool); j++ {
			a, b := pool[i], pool[j]
			if a.Number != b.Number || a.Color == b.Color {
				continue
			}
			cand := tile.List{a, b, wilds[0]}
			*melds = append(*melds, Meld{Kind: MeldSet, Tiles: cand})
			wilds = wilds[1:]
			pool = removeAt(pool, i, j)
			i--
			break
		}
	}
	return pool, wilds
}

func removeAt(l tile.List, i, j int) tile.List {
	out := make(tile.List, 0, len(l)-2)
	for k, t := range l {
		if k != i && k != j {
			out = append(out, t)
		}
	}
	return out
}

func suggestPairs(hand tile.List, ok Okey) Suggestion {
	wilds := make(tile.List, 0, 4)
	byKey := map[[2]int]tile.List{}
	for _, t := range hand {
		if ok.IsWild(t) {
			wilds = append(wilds, t)
			continue
		}
		k := [2]int{int(t.Color), t.Number}
		byKey[k] = append(byKey[k], t)
	}

	var melds []Meld
	var singles tile.List
	keys := make([][2]int, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		ts := byKey[k]
		for len(ts) >= 2 {
			melds = append(melds, Meld{Kind: MeldPair, Tiles: ts[:2].Clone()})
			ts = ts[2:]
		}
		singles = append(singles, ts...)
	}

	// 万能牌先配单张，再互相配对。
	for len(wilds) > 0 && len(singles) > 0 {
		melds = append(melds, Meld{Kind: MeldPair, Tiles: tile.List{singles[0], wilds[0]}})
		singles = singles[1:]
		wilds = wilds[1:]
	}
	for len(wilds) >= 2 {
		melds = append(melds, Meld{Kind: MeldPair, Tiles: wilds[:2].Clone()})
		wilds = wilds[2:]
	}

	return Suggestion{
		Method:   OpenPair,
		Melds:    melds,
		Leftover: append(singles, wilds...),
		Pairs:    len(melds),
	}
}
