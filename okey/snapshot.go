package okey

import (
	"time"

	"okey81-lite/tile"
)

// PlayerSnapshot 单个座位的完整拷贝（含私有牌架，过滤在编解码层做）。
type PlayerSnapshot struct {
	Seat   int
	UserID uint64
	Name   string

	Rack  tile.List
	Melds []Meld

	Opened     bool
	OpenMethod OpenMethod
	Threshold  int

	DeclaredDouble    bool
	RefusedPermission bool
	ForbiddenDonors   []int

	Score int
}

// Snapshot 整局状态的深拷贝。
type Snapshot struct {
	Phase       Phase
	RoundNumber int

	Players [Seats]*PlayerSnapshot

	StockCount    int
	Discards      tile.List
	LastDiscard   *tile.Tile
	LastDiscarder int

	Indicator tile.Tile
	Okey      Okey

	TurnSeat int
	HasDrawn bool

	Window          WindowKind
	WindowSeat      int
	WindowRemaining time.Duration

	ForcedOpen          bool
	ForcedOpenRemaining time.Duration

	Winner int
}

// Snapshot 在锁内做一次完整深拷贝，调用方随意持有。
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	s := Snapshot{
		Phase:         g.phase,
		RoundNumber:   g.roundNumber,
		StockCount:    len(g.stock),
		Discards:      g.discards.Clone(),
		LastDiscarder: g.lastDiscarder,
		Indicator:     g.indicator,
		Okey:          g.okeyDef,
		TurnSeat:      g.turnSeat,
		HasDrawn:      g.hasDrawn,
		Window:        g.window.kind,
		WindowSeat:    g.window.seat,
		ForcedOpen:    g.forcedOpen,
		Winner:        g.winner,
	}
	if n := len(g.discards); n > 0 {
		last := g.discards[n-1]
		s.LastDiscard = &last
	}
	if g.window.kind != WindowNone && !g.window.deadline.IsZero() {
		if d := g.window.deadline.Sub(now); d > 0 {
			s.WindowRemaining = d
		}
	}
	if g.forcedOpen && !g.forcedDeadline.IsZero() {
		if d := g.forcedDeadline.Sub(now); d > 0 {
			s.ForcedOpenRemaining = d
		}
	}

	for seat, p := range g.players {
		if p == nil {
			continue
		}
		donors := make([]int, 0, len(p.forbiddenDonors))
		for d := range p.forbiddenDonors {
			donors = append(donors, d)
		}
		s.Players[seat] = &PlayerSnapshot{
			Seat:              p.seat,
			UserID:            p.userID,
			Name:              p.name,
			Rack:              p.rack.Clone(),
			Melds:             cloneMelds(p.melds),
			Opened:            p.opened,
			OpenMethod:        p.openMethod,
			Threshold:         p.threshold,
			DeclaredDouble:    p.declaredDouble,
			RefusedPermission: p.refusedPermission,
			ForbiddenDonors:   donors,
			Score:             p.score,
		}
	}
	return s
}

// TableMelds 桌面上全部已开的组（接牌判定和提示用）。
func (s Snapshot) TableMelds() []Meld {
	var out []Meld
	for _, p := range s.Players {
		if p != nil {
			out = append(out, p.Melds...)
		}
	}
	return out
}
