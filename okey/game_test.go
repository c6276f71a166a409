package okey

import (
	"testing"
	"time"
)

func newTestGame(t *testing.T, cfg Config) *Game {
	t.Helper()
	g, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	for i := 0; i < Seats; i++ {
		if _, err := g.Join(uint64(10001+i), "p"); err != nil {
			t.Fatalf("join %d err: %v", i, err)
		}
	}
	return g
}

func TestDealInvariants(t *testing.T) {
	g := newTestGame(t, Config{Seed: 7})
	snap := g.Snapshot()

	if snap.Phase != PhaseDraw {
		t.Fatalf("phase = %v, want draw", snap.Phase)
	}
	if snap.TurnSeat != 0 {
		t.Fatalf("first round must start at seat 0, got %d", snap.TurnSeat)
	}
	if snap.StockCount != 49 {
		t.Fatalf("stock = %d, want 49 (106 - 4*14 - indicator)", snap.StockCount)
	}

	seen := map[int]bool{snap.Indicator.ID: true}
	total := 1 + snap.StockCount
	for _, p := range snap.Players {
		if len(p.Rack) != 14 {
			t.Fatalf("seat %d rack = %d, want 14", p.Seat, len(p.Rack))
		}
		total += len(p.Rack)
		for _, tl := range p.Rack {
			if seen[tl.ID] {
				t.Fatalf("tile id %d dealt twice", tl.ID)
			}
			seen[tl.ID] = true
		}
	}
	if total != 106 {
		t.Fatalf("tile conservation broken: %d", total)
	}

	if snap.Okey.Joker {
		return
	}
	want := snap.Indicator.Number + 1
	if want > 13 {
		want = 1
	}
	if snap.Okey.Number != want || snap.Okey.Color != snap.Indicator.Color {
		t.Fatalf("okey %+v does not follow indicator %v", snap.Okey, snap.Indicator)
	}
}

func TestJoinTableFull(t *testing.T) {
	g := newTestGame(t, Config{Seed: 1})
	if _, err := g.Join(99, "late"); err == nil {
		t.Fatal("fifth join must fail")
	}
}

func TestTurnFlow(t *testing.T) {
	g := newTestGame(t, Config{Seed: 3})

	if _, err := g.DrawStock(2); err != ErrOutOfTurn {
		t.Fatalf("out-of-turn draw: %v", err)
	}

	drawn, err := g.DrawStock(0)
	if err != nil {
		t.Fatalf("draw err: %v", err)
	}
	if snap := g.Snapshot(); snap.Phase != PhaseDiscard || len(snap.Players[0].Rack) != 15 {
		t.Fatalf("after draw: phase=%v rack=%d", snap.Phase, len(snap.Players[0].Rack))
	}
	if err := g.Discard(0, drawn.ID); err != nil {
		t.Fatalf("discard err: %v", err)
	}

	// 下家收到拿牌报价。
	snap := g.Snapshot()
	if snap.TurnSeat != 1 || snap.Phase != PhaseSidePickup || snap.Window != WindowSidePickup {
		t.Fatalf("after discard: %+v", snap.Phase)
	}
	if snap.LastDiscard == nil || snap.LastDiscard.ID != drawn.ID {
		t.Fatal("last discard not visible")
	}

	if err := g.SidePass(1); err != nil {
		t.Fatalf("pass err: %v", err)
	}
	if snap := g.Snapshot(); snap.Phase != PhaseDraw {
		t.Fatalf("after pass: %v", snap.Phase)
	}
	d1, err := g.DrawStock(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Discard(1, d1.ID); err != nil {
		t.Fatal(err)
	}

	// 报价阶段直接摸牌等于放弃。
	if _, err := g.DrawStock(2); err != nil {
		t.Fatalf("draw during offer should implicitly decline: %v", err)
	}
}

func TestDeclareDouble(t *testing.T) {
	g := newTestGame(t, Config{Seed: 5})
	if err := g.DeclareDouble(0); err != nil {
		t.Fatalf("declare err: %v", err)
	}
	snap := g.Snapshot()
	if !snap.Players[0].DeclaredDouble || snap.Players[0].Threshold != BaseOpenThreshold {
		t.Fatalf("declarer state wrong: %+v", snap.Players[0])
	}
	for seat := 1; seat < Seats; seat++ {
		if snap.Players[seat].Threshold != RaisedOpenThreshold {
			t.Fatalf("seat %d threshold = %d, want 101", seat, snap.Players[seat].Threshold)
		}
	}
	if err := g.DeclareDouble(0); err == nil {
		t.Fatal("second declaration must be rejected")
	}
}

func TestPermissionDenyFlow(t *testing.T) {
	g := newTestGame(t, Config{Seed: 11})
	d0, _ := g.DrawStock(0)
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	if err := g.SidePickup(1); err != nil {
		t.Fatalf("pickup request err: %v", err)
	}
	if snap := g.Snapshot(); snap.Phase != PhasePermission || snap.WindowSeat != 0 {
		t.Fatalf("permission window wrong: %v seat=%d", snap.Phase, snap.WindowSeat)
	}

	if err := g.DenyPermission(0); err != nil {
		t.Fatalf("deny err: %v", err)
	}
	snap := g.Snapshot()
	if !snap.Players[0].RefusedPermission {
		t.Fatal("refuser must be flagged")
	}
	if len(snap.Players[1].ForbiddenDonors) != 1 || snap.Players[1].ForbiddenDonors[0] != 0 {
		t.Fatalf("forbidden donors wrong: %v", snap.Players[1].ForbiddenDonors)
	}
	if snap.Phase != PhaseDraw || snap.TurnSeat != 1 {
		t.Fatalf("requester must fall back to drawing: %v", snap.Phase)
	}

	// 一圈之后 0 号再弃牌：1 号不再收到报价。
	for seat := 1; seat <= 3; seat++ {
		d, err := g.DrawStock(seat)
		if err != nil {
			t.Fatalf("seat %d draw: %v", seat, err)
		}
		if err := g.Discard(seat, d.ID); err != nil {
			t.Fatal(err)
		}
	}
	d0, err := g.DrawStock(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	if snap := g.Snapshot(); snap.Phase != PhaseDraw {
		t.Fatalf("banned donor's discard must not be offered: %v", snap.Phase)
	}
}

func TestPermissionGrantForcedOpen(t *testing.T) {
	g := newTestGame(t, Config{Seed: 13, ForcedOpenWindow: time.Millisecond})
	d0, _ := g.DrawStock(0)
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	if err := g.SidePickup(1); err != nil {
		t.Fatal(err)
	}
	if err := g.GrantPermission(0); err != nil {
		t.Fatalf("grant err: %v", err)
	}

	snap := g.Snapshot()
	if len(snap.Players[1].Rack) != 15 || !snap.ForcedOpen || snap.Phase != PhaseDiscard {
		t.Fatalf("granted pickup state wrong: rack=%d forced=%v phase=%v",
			len(snap.Players[1].Rack), snap.ForcedOpen, snap.Phase)
	}

	// 没开牌不许打。
	if err := g.Discard(1, snap.Players[1].Rack[0].ID); err == nil {
		t.Fatal("discard must be blocked while forced to open")
	}

	// 超时：拿的牌打回去，再摸一张直接打出，+100，轮转。
	exp := g.ExpireDue(time.Now().Add(time.Second))
	if len(exp) != 1 || exp[0].Kind != WindowForcedOpen || exp[0].Seat != 1 {
		t.Fatalf("expiries = %+v", exp)
	}
	snap = g.Snapshot()
	if len(snap.Players[1].Rack) != 14 {
		t.Fatalf("rack = %d after forced-open expiry, want 14", len(snap.Players[1].Rack))
	}
	if snap.Players[1].Score != ForcedOpenPenalty {
		t.Fatalf("score = %d, want +100", snap.Players[1].Score)
	}
	if snap.TurnSeat != 2 {
		t.Fatalf("turn = %d, want 2", snap.TurnSeat)
	}
}

func TestPermissionTimeoutGrants(t *testing.T) {
	g := newTestGame(t, Config{Seed: 17, PermissionWindow: time.Millisecond})
	d0, _ := g.DrawStock(0)
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	if err := g.SidePickup(1); err != nil {
		t.Fatal(err)
	}

	// 超时即同意，不是拒绝。
	exp := g.ExpireDue(time.Now().Add(time.Second))
	if len(exp) != 1 || exp[0].Kind != WindowPermission {
		t.Fatalf("expiries = %+v", exp)
	}
	snap := g.Snapshot()
	if len(snap.Players[1].Rack) != 15 || !snap.ForcedOpen {
		t.Fatalf("timeout must grant: rack=%d forced=%v", len(snap.Players[1].Rack), snap.ForcedOpen)
	}
	if snap.Players[0].RefusedPermission {
		t.Fatal("timeout is not a refusal")
	}
}

func TestSidePickupTimeoutDeclines(t *testing.T) {
	g := newTestGame(t, Config{Seed: 19, SidePickupWindow: time.Millisecond})
	d0, _ := g.DrawStock(0)
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	exp := g.ExpireDue(time.Now().Add(time.Second))
	if len(exp) != 1 || exp[0].Kind != WindowSidePickup {
		t.Fatalf("expiries = %+v", exp)
	}
	if snap := g.Snapshot(); snap.Phase != PhaseDraw || snap.TurnSeat != 1 {
		t.Fatalf("offer timeout must fall back to draw: %v", snap.Phase)
	}
}

// TestPickupFromOpenedDonorNeedsPermission 弃牌者已经开过牌也一样：
// 拿牌必须先问过他，不能直接把牌抢走。
func TestPickupFromOpenedDonorNeedsPermission(t *testing.T) {
	g := newTestGame(t, Config{Seed: 31})
	g.players[0].opened = true
	g.players[0].openMethod = OpenRunSet

	d0, _ := g.DrawStock(0)
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	if err := g.SidePickup(1); err != nil {
		t.Fatalf("pickup request err: %v", err)
	}

	snap := g.Snapshot()
	if snap.Phase != PhasePermission || snap.WindowSeat != 0 {
		t.Fatalf("must ask the discarder first: phase=%v seat=%d", snap.Phase, snap.WindowSeat)
	}
	if len(snap.Players[1].Rack) != 14 || snap.ForcedOpen {
		t.Fatalf("tile moved before permission: rack=%d forced=%v",
			len(snap.Players[1].Rack), snap.ForcedOpen)
	}

	// 同意之后才转牌，未开牌的拿牌者照样被强制开牌。
	if err := g.GrantPermission(0); err != nil {
		t.Fatalf("grant err: %v", err)
	}
	snap = g.Snapshot()
	if len(snap.Players[1].Rack) != 15 || !snap.ForcedOpen {
		t.Fatalf("grant must hand over the tile: rack=%d forced=%v",
			len(snap.Players[1].Rack), snap.ForcedOpen)
	}
}

// TestDoubleDeclarerIgnoresForbiddenDonor 被拒绝过的请求者一旦宣布
// çifte，禁止名单对他失效，照样收到那家弃牌的报价并可直接拿。
func TestDoubleDeclarerIgnoresForbiddenDonor(t *testing.T) {
	g := newTestGame(t, Config{Seed: 37})
	d0, _ := g.DrawStock(0)
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	if err := g.SidePickup(1); err != nil {
		t.Fatal(err)
	}
	if err := g.DenyPermission(0); err != nil {
		t.Fatal(err)
	}

	if err := g.DeclareDouble(1); err != nil {
		t.Fatalf("declare err: %v", err)
	}
	d1, err := g.DrawStock(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Discard(1, d1.ID); err != nil {
		t.Fatal(err)
	}

	// 一圈转回来，0 号弃牌。
	for seat := 2; seat != 1; seat = (seat + 1) % Seats {
		if snap := g.Snapshot(); snap.Phase == PhaseSidePickup {
			if err := g.SidePass(seat); err != nil {
				t.Fatalf("seat %d pass: %v", seat, err)
			}
		}
		d, err := g.DrawStock(seat)
		if err != nil {
			t.Fatalf("seat %d draw: %v", seat, err)
		}
		if err := g.Discard(seat, d.ID); err != nil {
			t.Fatalf("seat %d discard: %v", seat, err)
		}
	}

	snap := g.Snapshot()
	if snap.TurnSeat != 1 || snap.Phase != PhaseSidePickup {
		t.Fatalf("declarer must still get the offer: turn=%d phase=%v", snap.TurnSeat, snap.Phase)
	}
	if snap.LastDiscard != nil && snap.Okey.IsWild(*snap.LastDiscard) {
		// 弃的正好是 okey 时 çifte 家拿不了活牌，报价本身已经验证过了。
		return
	}
	if err := g.SidePickup(1); err != nil {
		t.Fatalf("declarer pickup err: %v", err)
	}
	snap = g.Snapshot()
	if snap.Phase != PhaseDiscard || len(snap.Players[1].Rack) != 15 || snap.ForcedOpen {
		t.Fatalf("declarer takes without permission or forced open: phase=%v rack=%d forced=%v",
			snap.Phase, len(snap.Players[1].Rack), snap.ForcedOpen)
	}
}

// TestResolvedWindowDoesNotExpire 玩家表态解除报价窗口后，
// 原 deadline 过了也不能再触发一次默认转移。
func TestResolvedWindowDoesNotExpire(t *testing.T) {
	g := newTestGame(t, Config{Seed: 29, SidePickupWindow: time.Millisecond})
	d0, _ := g.DrawStock(0)
	if err := g.Discard(0, d0.ID); err != nil {
		t.Fatal(err)
	}
	if err := g.SidePass(1); err != nil {
		t.Fatal(err)
	}

	if exp := g.ExpireDue(time.Now().Add(time.Second)); len(exp) != 0 {
		t.Fatalf("resolved window fired again: %+v", exp)
	}
	if snap := g.Snapshot(); snap.Phase != PhaseDraw || snap.TurnSeat != 1 {
		t.Fatalf("state disturbed after stale tick: phase=%v turn=%d", snap.Phase, snap.TurnSeat)
	}
}

// playOut 把一回合机械打完：放弃报价、摸一张打一张，直到流局。
func playOut(t *testing.T, g *Game) {
	t.Helper()
	for i := 0; i < 300; i++ {
		snap := g.Snapshot()
		if snap.Phase == PhaseRoundEnd {
			return
		}
		seat := snap.TurnSeat
		if snap.Phase == PhaseSidePickup {
			if err := g.SidePass(seat); err != nil {
				t.Fatalf("pass err: %v", err)
			}
		}
		d, err := g.DrawStock(seat)
		if err != nil {
			t.Fatalf("draw err: %v", err)
		}
		if err := g.Discard(seat, d.ID); err != nil {
			t.Fatalf("discard err: %v", err)
		}
	}
	t.Fatal("round did not end")
}

func TestStockExhaustion(t *testing.T) {
	g := newTestGame(t, Config{Seed: 23})
	playOut(t, g)

	snap := g.Snapshot()
	if snap.StockCount != 0 {
		t.Fatalf("stock = %d, want 0", snap.StockCount)
	}
	res := g.LastResult()
	if res == nil || res.Winner != InvalidSeat {
		t.Fatalf("expected drawn round, got %+v", res)
	}
	for seat, d := range res.Deltas {
		if d != UnopenedPenalty {
			t.Fatalf("seat %d delta = %d, want +100", seat, d)
		}
	}

	// 下一回合从下一个座位开始。
	if err := g.DealRound(); err != nil {
		t.Fatalf("next deal err: %v", err)
	}
	if snap := g.Snapshot(); snap.RoundNumber != 2 || snap.TurnSeat != 1 {
		t.Fatalf("round 2 should start at seat 1: %+v", snap.TurnSeat)
	}
}

func TestReplayDeterminism(t *testing.T) {
	run := func() Snapshot {
		g := newTestGame(t, Config{Seed: 31})
		playOut(t, g)
		return g.Snapshot()
	}
	a, b := run(), run()

	if a.Indicator != b.Indicator || a.Okey != b.Okey {
		t.Fatalf("indicator diverged: %v vs %v", a.Indicator, b.Indicator)
	}
	if len(a.Discards) != len(b.Discards) {
		t.Fatalf("discard history diverged: %d vs %d", len(a.Discards), len(b.Discards))
	}
	for i := range a.Discards {
		if a.Discards[i] != b.Discards[i] {
			t.Fatalf("discard %d diverged: %v vs %v", i, a.Discards[i], b.Discards[i])
		}
	}
	for seat := range a.Players {
		if a.Players[seat].Score != b.Players[seat].Score {
			t.Fatalf("seat %d score diverged", seat)
		}
	}
}
