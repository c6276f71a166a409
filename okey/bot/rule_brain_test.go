package bot

import (
	"testing"

	"okey81-lite/okey"
	"okey81-lite/tile"
)

func tl(id int, c tile.Color, n int) tile.Tile {
	return tile.Tile{ID: id, Number: n, Color: c}
}

var testOkey = okey.Okey{Number: 4, Color: tile.Black}

func TestBrainDrawsWhenNothingPending(t *testing.T) {
	b := NewRuleBrain("bot", 1)
	d := b.Decide(GameView{Phase: okey.PhaseDraw})
	if d.Action != ActionDraw {
		t.Fatalf("action = %v, want draw", d.Action)
	}
}

func TestBrainOpensWhenOverThreshold(t *testing.T) {
	b := NewRuleBrain("bot", 1)
	// 13×4 (52) + 12×3 (36) = 88 ≥ 81，多一张 2 可打。
	rack := tile.List{
		tl(1, tile.Red, 13), tl(2, tile.Blue, 13), tl(3, tile.Yellow, 13), tl(4, tile.Black, 13),
		tl(5, tile.Red, 12), tl(6, tile.Blue, 12), tl(7, tile.Yellow, 12),
		tl(8, tile.Blue, 2),
	}
	d := b.Decide(GameView{
		Phase:     okey.PhaseDiscard,
		Rack:      rack,
		Okey:      testOkey,
		Threshold: okey.BaseOpenThreshold,
	})
	if d.Action != ActionOpen {
		t.Fatalf("action = %v, want open", d.Action)
	}
	used := 0
	for _, id := range d.Slots {
		if id != 0 {
			used++
		}
	}
	if used != 7 {
		t.Fatalf("layout uses %d tiles, want 7", used)
	}
}

func TestBrainDiscardsBelowThreshold(t *testing.T) {
	b := NewRuleBrain("bot", 1)
	rack := tile.List{
		tl(1, tile.Red, 2), tl(2, tile.Blue, 7), tl(3, tile.Yellow, 11), tl(4, tile.Black, 5),
	}
	d := b.Decide(GameView{
		Phase:     okey.PhaseDiscard,
		Rack:      rack,
		Okey:      testOkey,
		Threshold: okey.BaseOpenThreshold,
	})
	if d.Action != ActionDiscard || d.TileID == 0 {
		t.Fatalf("decision = %+v, want a discard", d)
	}
}

func TestBrainAvoidsPlayableDiscard(t *testing.T) {
	b := NewRuleBrain("bot", 1)
	table := []okey.Meld{{
		Kind:  okey.MeldRun,
		Tiles: tile.List{tl(90, tile.Red, 3), tl(91, tile.Red, 4), tl(92, tile.Red, 5)},
	}}
	// 6红 是活牌，11黄 不是：该打 11黄。
	rack := tile.List{tl(1, tile.Red, 6), tl(2, tile.Yellow, 11)}
	d := b.Decide(GameView{
		Phase:      okey.PhaseDiscard,
		Rack:       rack,
		Okey:       testOkey,
		Threshold:  okey.BaseOpenThreshold,
		Opened:     true,
		TableMelds: table,
	})
	if d.Action != ActionDiscard || d.TileID != 2 {
		t.Fatalf("decision = %+v, want discard of tile 2", d)
	}
}

func TestBrainPicksUpOpeningTile(t *testing.T) {
	b := NewRuleBrain("bot", 1)
	last := tl(99, tile.Black, 12)
	// 手里 87 分差一张黑 12 凑出 52+36=88。
	rack := tile.List{
		tl(1, tile.Red, 13), tl(2, tile.Blue, 13), tl(3, tile.Yellow, 13), tl(4, tile.Black, 13),
		tl(5, tile.Red, 12), tl(6, tile.Blue, 12),
		tl(7, tile.Blue, 2),
	}
	d := b.Decide(GameView{
		Phase:       okey.PhaseSidePickup,
		Rack:        rack,
		Okey:        testOkey,
		Threshold:   okey.BaseOpenThreshold,
		LastDiscard: &last,
	})
	if d.Action != ActionSidePickup {
		t.Fatalf("action = %v, want pickup", d.Action)
	}

	// 没用的牌不拿。
	junk := tl(99, tile.Yellow, 1)
	d = b.Decide(GameView{
		Phase:       okey.PhaseSidePickup,
		Rack:        rack,
		Okey:        testOkey,
		Threshold:   okey.BaseOpenThreshold,
		LastDiscard: &junk,
	})
	if d.Action != ActionSidePass {
		t.Fatalf("action = %v, want pass", d.Action)
	}
}
