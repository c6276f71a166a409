package okey

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"okey81-lite/tile"
)

// Game 一个房间的权威回合状态机。
//
// 所有修改方法都在 g.mu 内串行执行；验证在前、修改在后，
// 规则拒绝不产生任何副作用。验牌/接牌/开牌评估是纯函数，
// 可以在锁外做投机查询。
type Game struct {
	cfg Config
	rng *rand.Rand
	mu  sync.Mutex

	phase   Phase
	players [Seats]*Player
	joined  int

	stock         tile.List
	discards      tile.List // 弃牌历史，收回时从尾部弹出
	lastDiscarder int
	turnSeat      int
	hasDrawn      bool

	indicator   tile.Tile
	okeyDef     Okey
	roundNumber int

	// 当前阶段窗口（拿牌表态 / 许可）。
	window windowState

	// 强制开牌窗口，和 PhaseDiscard 并存。
	forcedOpen     bool
	forcedTile     tile.Tile
	forcedDeadline time.Time

	winner     int
	lastResult *RoundResult
}

type windowState struct {
	kind     WindowKind
	seat     int // 谁的表态能解除它
	deadline time.Time
}

// RoundResult 回合结算。Deltas 是本回合加减，Scores 是累计分。
type RoundResult struct {
	Round  int
	Winner int // InvalidSeat 表示流局
	Reason string
	Deltas [Seats]int
	Scores [Seats]int
}

// Expiry 由 ExpireDue 返回，描述一次已生效的超时转移。
type Expiry struct {
	Kind WindowKind
	Seat int
}

func NewGame(cfg Config) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Game{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		phase:  PhaseWaiting,
		winner: InvalidSeat,
	}, nil
}

// Join 入座。坐满 4 人自动发第一回合。
func (g *Game) Join(userID uint64, name string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseWaiting {
		return InvalidSeat, ErrInvalidState("round in progress")
	}
	for seat := 0; seat < Seats; seat++ {
		if g.players[seat] == nil {
			g.players[seat] = newPlayer(seat, userID, name, g.cfg.openThreshold())
			g.joined++
			if g.joined == Seats {
				g.dealRoundLocked()
			}
			return seat, nil
		}
	}
	return InvalidSeat, ErrInvalidState("table full")
}

func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.joined
}

// DealRound 开下一回合（上一回合结束后由房间层调用）。
func (g *Game) DealRound() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.joined != Seats {
		return ErrInvalidState("not enough players")
	}
	if g.phase != PhaseRoundEnd && g.phase != PhaseWaiting {
		return ErrInvalidState("round in progress")
	}
	g.dealRoundLocked()
	return nil
}

func (g *Game) dealRoundLocked() {
	set := tile.NewSet()
	tile.Shuffle(set, g.rng)

	for _, p := range g.players {
		p.resetRound(g.cfg.openThreshold())
	}

	idx := 0
	for _, p := range g.players {
		p.rack = tile.List(set[idx : idx+14]).Clone()
		idx += 14
	}
	g.stock = tile.List(set[idx:]).Clone()

	g.pickIndicatorLocked()

	g.discards = nil
	g.lastDiscarder = InvalidSeat
	g.roundNumber++
	g.turnSeat = (g.roundNumber - 1) % Seats
	g.hasDrawn = false
	g.forcedOpen = false
	g.window = windowState{}
	g.winner = InvalidSeat
	g.lastResult = nil
	g.phase = PhaseDraw
}

// pickIndicatorLocked 两次掷骰从未发的牌堆里选指示牌：
// 牌堆按 7 张一组，第一掷定组、第二掷定组内位置。
// 选中的牌退出本回合流通。
func (g *Game) pickIndicatorLocked() {
	const groupSize = 7
	die1 := 1 + g.rng.Intn(6)
	die2 := 1 + g.rng.Intn(6)

	groups := len(g.stock) / groupSize
	gi := (die1 + die2 - 2) % groups
	ti := (die1 * die2) % groupSize

	pos := gi*groupSize + ti
	g.indicator = g.stock[pos]
	g.stock = append(g.stock[:pos], g.stock[pos+1:]...)
	g.okeyDef = DeriveOkey(g.indicator)
}

// ---- 动作处理 ----

// DrawStock 从牌堆摸牌。在拿牌表态阶段摸牌视为放弃上家弃牌。
func (g *Game) DrawStock(seat int) (tile.Tile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return tile.Tile{}, ErrRoundEnded
	}
	if seat != g.turnSeat {
		return tile.Tile{}, ErrOutOfTurn
	}
	switch g.phase {
	case PhaseDraw:
	case PhaseSidePickup:
		g.clearWindowLocked()
	default:
		return tile.Tile{}, ErrInvalidState("cannot draw now")
	}
	if len(g.stock) == 0 {
		return tile.Tile{}, ErrStockEmpty
	}

	drawn := g.stock[0]
	g.stock = g.stock[1:]
	g.players[seat].rack = append(g.players[seat].rack, drawn)
	g.hasDrawn = true
	g.phase = PhaseDiscard
	return drawn, nil
}

// SidePickup 当前玩家要拿上家的弃牌。
//
// 宣布过 çifte 的玩家直接拿，不需许可也不强制开牌，但不能拿活牌。
// 其余所有情况都要向弃牌者请求许可，许可后未开牌的拿牌者必须当
// 回合开牌。
func (g *Game) SidePickup(seat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return ErrRoundEnded
	}
	if seat != g.turnSeat {
		return ErrOutOfTurn
	}
	if g.phase != PhaseSidePickup {
		return ErrInvalidState("no pickup offer pending")
	}

	p := g.players[seat]
	last := g.discards[len(g.discards)-1]

	if p.declaredDouble {
		if IsPlayable(last, g.tableMeldsLocked(), g.okeyDef) {
			return ErrRule("çifte giden işlek taş alamaz")
		}
		g.clearWindowLocked()
		g.takeLastDiscardLocked(seat)
		g.phase = PhaseDiscard
		return nil
	}

	g.startWindowLocked(WindowPermission, g.lastDiscarder, g.cfg.PermissionWindow)
	g.phase = PhasePermission
	return nil
}

// SidePass 放弃拿牌，转入摸牌。
func (g *Game) SidePass(seat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return ErrRoundEnded
	}
	if seat != g.turnSeat {
		return ErrOutOfTurn
	}
	if g.phase != PhaseSidePickup {
		return ErrInvalidState("no pickup offer pending")
	}
	g.clearWindowLocked()
	g.phase = PhaseDraw
	return nil
}

// GrantPermission 弃牌者同意。牌转给请求者；请求者未开牌则进入
// 强制开牌窗口。
func (g *Game) GrantPermission(seat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.grantPermissionLocked(seat)
}

func (g *Game) grantPermissionLocked(seat int) error {
	if g.phase == PhaseRoundEnd {
		return ErrRoundEnded
	}
	if g.phase != PhasePermission {
		return ErrInvalidState("no permission request pending")
	}
	if seat != g.lastDiscarder {
		return ErrOutOfTurn
	}

	requester := g.turnSeat
	g.clearWindowLocked()
	g.takeLastDiscardLocked(requester)
	if !g.players[requester].opened {
		g.startForcedOpenLocked(requester)
	}
	g.phase = PhaseDiscard
	return nil
}

// DenyPermission 弃牌者拒绝：拒绝者从此罚分翻倍（çifte geçti），
// 请求者把拒绝者拉进禁止名单，此后不再收到其弃牌的报价。
// 请求者转入摸牌。
func (g *Game) DenyPermission(seat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return ErrRoundEnded
	}
	if g.phase != PhasePermission {
		return ErrInvalidState("no permission request pending")
	}
	if seat != g.lastDiscarder {
		return ErrOutOfTurn
	}

	refuser := g.players[seat]
	refuser.refusedPermission = true
	g.players[g.turnSeat].forbiddenDonors[seat] = true

	g.clearWindowLocked()
	g.phase = PhaseDraw
	return nil
}

// DeclareDouble 宣布 çifte：立即把其余所有人的开牌门槛提到 101，
// 不可撤销、不可重复；宣布者此后只能用对子开牌。
func (g *Game) DeclareDouble(seat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return ErrRoundEnded
	}
	if seat != g.turnSeat {
		return ErrOutOfTurn
	}
	p := g.players[seat]
	if p.declaredDouble {
		return ErrRule("çifte zaten ilan edildi")
	}
	if p.opened {
		return ErrRule("açılmış el çifte ilan edemez")
	}

	p.declaredDouble = true
	for _, other := range g.players {
		if other.seat != seat {
			other.threshold = RaisedOpenThreshold
		}
	}
	return nil
}

// Open 开牌。slots 是 28 格布局的牌 id（0 = 空格）。
// 把整手牌全部开出去会没有可打的牌，直接拒绝，布局不动。
func (g *Game) Open(seat int, slots []int) (OpeningResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return OpeningResult{}, ErrRoundEnded
	}
	if seat != g.turnSeat {
		return OpeningResult{}, ErrOutOfTurn
	}
	if g.phase != PhaseDiscard {
		return OpeningResult{}, ErrInvalidState("open only after drawing")
	}
	if len(slots) > RackSlots {
		return OpeningResult{}, fmt.Errorf("layout has %d slots, max %d", len(slots), RackSlots)
	}

	p := g.players[seat]
	layout := make([]tile.Tile, len(slots))
	used := 0
	dup := map[int]bool{}
	for i, id := range slots {
		if id == 0 {
			continue
		}
		if dup[id] {
			return OpeningResult{}, ErrRule("aynı taş iki kez kullanılmış")
		}
		dup[id] = true
		j := p.rack.Find(id)
		if j < 0 {
			return OpeningResult{}, ErrTileNotOwned
		}
		layout[i] = p.rack[j]
		used++
	}
	if used == len(p.rack) {
		return OpeningResult{}, ErrRule("atacak taş kalmıyor, el komple açılamaz")
	}

	res, err := EvaluateOpening(layout, g.okeyDef, p.threshold,
		p.opened, p.openMethod, p.declaredDouble)
	if err != nil {
		return OpeningResult{}, err
	}

	for id := range dup {
		p.rack, _, _ = p.rack.Remove(id)
	}
	p.melds = append(p.melds, res.Melds...)
	if !p.opened {
		p.opened = true
		p.openMethod = res.Method
		p.score += res.HeadBand
	}
	if g.forcedOpen && g.turnSeat == seat {
		g.forcedOpen = false
	}
	return res, nil
}

// ProcessTile 接牌（işleme）。secondTileID 非零时是对子开牌者给
// 自己补一对新牌；否则把单张接到 targetSeat 的第 meldIndex 组上。
// 接到手里只剩零张没法打的程度会被拒绝。
func (g *Game) ProcessTile(seat, tileID, targetSeat, meldIndex, secondTileID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return ErrRoundEnded
	}
	if seat != g.turnSeat {
		return ErrOutOfTurn
	}
	if g.phase != PhaseDiscard {
		return ErrInvalidState("process only after drawing")
	}
	p := g.players[seat]
	if !p.opened {
		return ErrRule("önce el açılmalı")
	}

	if secondTileID != 0 {
		if p.openMethod != OpenPair {
			return ErrRule("çift işlemek için çiftten açılmış olmalı")
		}
		if len(p.rack) <= 2 {
			return ErrRule("atacak taş kalmıyor")
		}
		i1, i2 := p.rack.Find(tileID), p.rack.Find(secondTileID)
		if i1 < 0 || i2 < 0 || tileID == secondTileID {
			return ErrTileNotOwned
		}
		pair := []tile.Tile{p.rack[i1], p.rack[i2]}
		res, err := ValidateGroup(pair, g.okeyDef)
		if err != nil || !res.Valid || res.Kind != MeldPair {
			return ErrRule("iki taş çift oluşturmuyor")
		}
		p.rack, _, _ = p.rack.Remove(tileID)
		p.rack, _, _ = p.rack.Remove(secondTileID)
		p.melds = append(p.melds, Meld{Kind: MeldPair, Tiles: tile.List(pair).Clone()})
		return nil
	}

	if len(p.rack) <= 1 {
		return ErrRule("atacak taş kalmıyor")
	}
	if targetSeat < 0 || targetSeat >= Seats || g.players[targetSeat] == nil {
		return ErrInvalidState("invalid target seat")
	}
	target := g.players[targetSeat]
	if meldIndex < 0 || meldIndex >= len(target.melds) {
		return ErrInvalidState("invalid meld index")
	}
	i := p.rack.Find(tileID)
	if i < 0 {
		return ErrTileNotOwned
	}

	res := CanExtend(p.rack[i], target.melds[meldIndex], g.okeyDef)
	if !res.Fits {
		return ErrRule(res.Reason)
	}
	p.rack, _, _ = p.rack.Remove(tileID)
	target.melds[meldIndex] = res.NewMeld
	return nil
}

// Discard 打牌，回合推进。打出活牌立即 +100。
// 打完手里为空且已开牌则当场获胜结束回合。
func (g *Game) Discard(seat, tileID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseRoundEnd {
		return ErrRoundEnded
	}
	if seat != g.turnSeat {
		return ErrOutOfTurn
	}
	if g.phase != PhaseDiscard {
		return ErrInvalidState("draw before discarding")
	}
	if g.forcedOpen && !g.players[seat].opened {
		return ErrRule("önce el açılmalı (zorunlu açma)")
	}

	p := g.players[seat]
	i := p.rack.Find(tileID)
	if i < 0 {
		return ErrTileNotOwned
	}
	t := p.rack[i]

	if IsPlayable(t, g.tableMeldsLocked(), g.okeyDef) {
		p.score += PlayableDiscardFee
	}

	p.rack, _, _ = p.rack.Remove(tileID)
	g.discards = append(g.discards, t)
	g.lastDiscarder = seat

	if len(p.rack) == 0 && p.opened {
		g.endRoundLocked(seat, "el bitti")
		return nil
	}
	g.advanceTurnLocked()
	return nil
}

// ---- 窗口与超时 ----

// ExpireDue 由房间层的 tick 驱动：结算所有到期的窗口，
// 返回生效的默认转移。窗口被玩家表态解除后再 tick 不会重复触发，
// 因为解除动作在同一把锁里清掉了 g.window。
func (g *Game) ExpireDue(now time.Time) []Expiry {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Expiry
	if g.phase == PhaseRoundEnd {
		return out
	}

	if w := g.window; w.kind != WindowNone && !w.deadline.IsZero() && now.After(w.deadline) {
		switch w.kind {
		case WindowSidePickup:
			g.clearWindowLocked()
			g.phase = PhaseDraw
			out = append(out, Expiry{Kind: WindowSidePickup, Seat: g.turnSeat})
		case WindowPermission:
			// 超时即同意：故意偏向请求方。
			if err := g.grantPermissionLocked(w.seat); err == nil {
				out = append(out, Expiry{Kind: WindowPermission, Seat: w.seat})
			}
		}
	}

	if g.forcedOpen && !g.forcedDeadline.IsZero() && now.After(g.forcedDeadline) {
		seat := g.turnSeat
		g.expireForcedOpenLocked(seat)
		out = append(out, Expiry{Kind: WindowForcedOpen, Seat: seat})
	}
	return out
}

// expireForcedOpenLocked 强制开牌超时：拿走的牌原样打回，
// 再从牌堆摸一张直接打出，+100，回合推进。
func (g *Game) expireForcedOpenLocked(seat int) {
	p := g.players[seat]
	g.forcedOpen = false

	if rest, removed, ok := p.rack.Remove(g.forcedTile.ID); ok {
		p.rack = rest
		g.discards = append(g.discards, removed)
		g.lastDiscarder = seat
	}
	if len(g.stock) > 0 {
		drawn := g.stock[0]
		g.stock = g.stock[1:]
		g.discards = append(g.discards, drawn)
		g.lastDiscarder = seat
	}
	p.score += ForcedOpenPenalty
	g.advanceTurnLocked()
}

func (g *Game) startWindowLocked(kind WindowKind, seat int, d time.Duration) {
	w := windowState{kind: kind, seat: seat}
	if d > 0 {
		w.deadline = time.Now().Add(d)
	}
	g.window = w
}

func (g *Game) clearWindowLocked() {
	g.window = windowState{}
}

func (g *Game) startForcedOpenLocked(seat int) {
	g.forcedOpen = true
	g.forcedDeadline = time.Time{}
	if g.cfg.ForcedOpenWindow > 0 {
		g.forcedDeadline = time.Now().Add(g.cfg.ForcedOpenWindow)
	}
	g.turnSeat = seat
}

// ---- 内部流转 ----

// takeLastDiscardLocked 把最后一张弃牌转进 seat 的牌架。
func (g *Game) takeLastDiscardLocked(seat int) {
	last := g.discards[len(g.discards)-1]
	g.discards = g.discards[:len(g.discards)-1]
	g.players[seat].rack = append(g.players[seat].rack, last)
	g.forcedTile = last
	g.hasDrawn = true
}

func (g *Game) advanceTurnLocked() {
	if len(g.stock) == 0 {
		g.endRoundLocked(InvalidSeat, "istaka bitti")
		return
	}

	g.turnSeat = (g.turnSeat + 1) % Seats
	g.hasDrawn = false
	g.forcedOpen = false

	// çifte 宣布者可以无视禁止名单拿牌。
	next := g.players[g.turnSeat]
	if len(g.discards) > 0 && g.lastDiscarder != InvalidSeat &&
		(next.declaredDouble || !next.forbiddenDonors[g.lastDiscarder]) {
		g.startWindowLocked(WindowSidePickup, g.turnSeat, g.cfg.SidePickupWindow)
		g.phase = PhaseSidePickup
		return
	}
	g.phase = PhaseDraw
}

func (g *Game) endRoundLocked(winner int, reason string) {
	result := &RoundResult{
		Round:  g.roundNumber,
		Winner: winner,
		Reason: reason,
	}
	for seat, p := range g.players {
		var delta int
		if seat == winner {
			delta = WinnerBonus
		} else {
			delta = RoundPenalty(p.opened, p.rack, g.okeyDef,
				p.declaredDouble, p.refusedPermission)
		}
		p.score += delta
		result.Deltas[seat] = delta
		result.Scores[seat] = p.score
	}

	g.winner = winner
	g.lastResult = result
	g.clearWindowLocked()
	g.forcedOpen = false
	g.phase = PhaseRoundEnd
}

// LastResult 最近一次回合结算，回合未结束时为 nil。
func (g *Game) LastResult() *RoundResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastResult == nil {
		return nil
	}
	cp := *g.lastResult
	return &cp
}

func (g *Game) tableMeldsLocked() []Meld {
	var out []Meld
	for _, p := range g.players {
		if p != nil {
			out = append(out, p.melds...)
		}
	}
	return out
}
