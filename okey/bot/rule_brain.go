package bot

import (
	"math/rand"
	"time"

	"okey81-lite/okey"
)

// 拆牌建议的时间预算。机器人决策在房间 goroutine 外跑，
// 预算只是兜底，正常远用不满。
const suggestBudget = 50 * time.Millisecond

// RuleBrain 规则机器人：靠拆牌建议打直球，不做记牌。
type RuleBrain struct {
	name string
	rng  *rand.Rand
}

func NewRuleBrain(name string, seed int64) *RuleBrain {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RuleBrain{name: name, rng: rand.New(rand.NewSource(seed))}
}

func (b *RuleBrain) Name() string { return b.name }

func (b *RuleBrain) Decide(view GameView) Decision {
	switch view.Phase {
	case okey.PhaseSidePickup:
		return b.decidePickup(view)
	case okey.PhasePermission:
		return b.decidePermission(view)
	case okey.PhaseDraw:
		return Decision{Action: ActionDraw}
	case okey.PhaseDiscard:
		return b.decideDiscard(view)
	}
	return Decision{Action: ActionNone}
}

// decidePickup 拿上家的牌仅当它让拆牌总分变好。
// 没开牌的拿牌要背强制开牌，所以再额外要求拿完就够开。
func (b *RuleBrain) decidePickup(view GameView) Decision {
	if view.LastDiscard == nil {
		return Decision{Action: ActionSidePass}
	}
	method := okey.OpenRunSet
	if view.DeclaredDouble {
		method = okey.OpenPair
	}

	before := okey.SuggestMelds(view.Rack, view.Okey, method, suggestBudget)
	withTile := append(view.Rack.Clone(), *view.LastDiscard)
	after := okey.SuggestMelds(withTile, view.Okey, method, suggestBudget)

	if view.Opened || view.DeclaredDouble {
		if after.Total > before.Total || after.Pairs > before.Pairs {
			return Decision{Action: ActionSidePickup}
		}
		return Decision{Action: ActionSidePass}
	}
	// 未开牌：拿了就得当回合开出来。
	if after.Total >= view.Threshold || after.Pairs >= 4 {
		return Decision{Action: ActionSidePickup}
	}
	return Decision{Action: ActionSidePass}
}

// decidePermission 大多数时候放行；自己还没开牌时偶尔拦一手，
// 拦的代价（罚分翻倍）让这个概率保持很低。
func (b *RuleBrain) decidePermission(view GameView) Decision {
	if !view.Opened && b.rng.Float64() < 0.1 {
		return Decision{Action: ActionDeny}
	}
	return Decision{Action: ActionGrant}
}

func (b *RuleBrain) decideDiscard(view GameView) Decision {
	if !view.Opened {
		method := okey.OpenRunSet
		if view.DeclaredDouble {
			method = okey.OpenPair
		}
		s := okey.SuggestMelds(view.Rack, view.Okey, method, suggestBudget)
		openable := (method == okey.OpenRunSet && s.Total >= view.Threshold) ||
			(method == okey.OpenPair && s.Pairs >= 4)
		// 全开出去会没牌可打，留一张。
		if openable && len(s.Leftover) >= 1 {
			return Decision{Action: ActionOpen, Slots: buildLayout(s.Melds)}
		}
	}
	return Decision{Action: ActionDiscard, TileID: b.pickDiscard(view)}
}

// pickDiscard 先避活牌（打出去就 +100），再在建议的剩牌里
// 挑点数最小的一张。
func (b *RuleBrain) pickDiscard(view GameView) int {
	s := okey.SuggestMelds(view.Rack, view.Okey, okey.OpenRunSet, suggestBudget)
	candidates := s.Leftover
	if len(candidates) == 0 {
		candidates = view.Rack
	}

	bestID, bestVal := 0, 1<<30
	for _, t := range candidates {
		if okey.IsPlayable(t, view.TableMelds, view.Okey) {
			continue
		}
		if v := view.Okey.TileValue(t); v < bestVal {
			bestID, bestVal = t.ID, v
		}
	}
	if bestID != 0 {
		return bestID
	}
	// 全是活牌就认罚，挑最便宜的。
	for _, t := range candidates {
		if v := view.Okey.TileValue(t); v < bestVal {
			bestID, bestVal = t.ID, v
		}
	}
	return bestID
}

// buildLayout 把建议的组摆进 28 格布局，组间留空。
func buildLayout(melds []okey.Meld) []int {
	slots := make([]int, okey.RackSlots)
	i := 0
	for _, m := range melds {
		if i+len(m.Tiles) > okey.RackSlots {
			break
		}
		// 组跨行会被切开，顶到行尾就换行。
		row := i / okey.RackRow
		if (i+len(m.Tiles)-1)/okey.RackRow != row {
			i = (row + 1) * okey.RackRow
			if i+len(m.Tiles) > okey.RackSlots {
				break
			}
		}
		for _, t := range m.Tiles {
			slots[i] = t.ID
			i++
		}
		i++
	}
	return slots
}

var _ BrainDecider = (*RuleBrain)(nil)
