// Package table hosts one actor goroutine per room: all room state is
// mutated inside run(), actions arrive as events, timers are driven by
// a sub-second tick.
package table

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"okey81-lite/apps/server/internal/codec"
	"okey81-lite/apps/server/internal/ledger"
	"okey81-lite/okey"
	"okey81-lite/okey/bot"
)

// Room represents a single okey room with an actor model.
type Room struct {
	ID     string
	Config RoomConfig

	mu       sync.RWMutex
	game     *okey.Game
	players  map[uint64]*PlayerConn // userID -> connection
	seats    map[int]uint64         // seat -> userID
	bots     map[int]bot.BrainDecider
	closed   bool
	finished bool
	stopOnce sync.Once

	events chan Event
	done   chan struct{}

	// Timers and lifecycle metadata.
	turnSeat     int
	turnDeadline time.Time
	nextRoundAt  time.Time
	botActAt     time.Time
	roundsSeen   int

	// Callback to broadcast messages.
	broadcast func(userID uint64, data []byte)
	ledger    ledger.Service

	roundEndHooks []RoundEndHook
}

// RoomConfig contains room settings.
type RoomConfig struct {
	Rounds        int // rounds per sitting
	TurnTimeout   time.Duration
	OpenThreshold int
	Seed          int64
}

func (c RoomConfig) withDefaults() RoomConfig {
	if c.Rounds <= 0 {
		c.Rounds = 4
	}
	if c.TurnTimeout == 0 {
		c.TurnTimeout = 50 * time.Second
	}
	return c
}

// PlayerConn represents a connected player in the room.
type PlayerConn struct {
	UserID   uint64
	Nickname string
	Seat     int
	Online   bool
	LastSeen time.Time
}

// EventType for the actor message queue.
type EventType int

const (
	EventJoin EventType = iota
	EventAddBot
	EventAction
	EventState
	EventConnLost
	EventConnResume
	EventClose
)

// ActionKind is the seat-scoped game verb inside an EventAction.
type ActionKind int

const (
	ActionDraw ActionKind = iota
	ActionDiscard
	ActionSidePickup
	ActionSidePass
	ActionGrant
	ActionDeny
	ActionOpen
	ActionDeclareDouble
	ActionProcessTile
)

// Event represents a message to the room actor.
type Event struct {
	Type     EventType
	UserID   uint64
	Nickname string

	Action       ActionKind
	TileID       int
	TargetSeat   int
	MeldIndex    int
	SecondTileID int
	Slots        []int

	Timestamp time.Time
	Response  chan error
}

// RoundEndInfo is emitted when a round settlement is finalized.
type RoundEndInfo struct {
	RoomID   string
	Result   okey.RoundResult
	Snapshot okey.Snapshot
	Final    bool
}

// RoundEndHook is a post-settlement callback.
type RoundEndHook func(info RoundEndInfo)

var ErrRoomClosed = errors.New("room closed")
var ErrNotSeated = errors.New("user not seated")

const (
	interRoundDelay = 6 * time.Second
	botReactDelay   = 700 * time.Millisecond
)

// New creates a room and starts its actor goroutine.
func New(
	id string,
	cfg RoomConfig,
	broadcastFn func(userID uint64, data []byte),
	ledgerService ledger.Service,
) (*Room, error) {
	cfg = cfg.withDefaults()
	g, err := okey.NewGame(okey.Config{
		OpenThreshold:    cfg.OpenThreshold,
		SidePickupWindow: okey.DefaultSidePickupWindow,
		PermissionWindow: okey.DefaultPermissionWindow,
		ForcedOpenWindow: okey.DefaultForcedOpenWindow,
		Seed:             cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	if ledgerService == nil {
		ledgerService = ledger.NewNoop()
	}

	r := &Room{
		ID:        id,
		Config:    cfg,
		game:      g,
		players:   make(map[uint64]*PlayerConn),
		seats:     make(map[int]uint64),
		bots:      make(map[int]bot.BrainDecider),
		events:    make(chan Event, 256),
		done:      make(chan struct{}),
		turnSeat:  okey.InvalidSeat,
		broadcast: broadcastFn,
		ledger:    ledgerService,
	}
	go r.run()
	return r, nil
}

// AddRoundEndHook registers a post-settlement callback. Hooks run in
// their own goroutine and must not submit events back synchronously.
func (r *Room) AddRoundEndHook(h RoundEndHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roundEndHooks = append(r.roundEndHooks, h)
}

func (r *Room) run() {
	// Sub-second heartbeat for window expiry, turn timeout and
	// inter-round scheduling.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-r.events:
			err := r.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			r.tick()
		case <-r.done:
			log.Printf("[Room %s] Actor stopped", r.ID)
			return
		}
	}
}

// SubmitEvent queues an event and waits for the actor's answer.
func (r *Room) SubmitEvent(e Event) error {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRoomClosed
	}

	select {
	case r.events <- e:
	case <-r.done:
		return ErrRoomClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// Stop shuts the actor down exactly once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
	})
}

// Seated reports whether the user has a seat here.
func (r *Room) Seated(userID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[userID]
	return ok
}

// HumanSeats counts occupied non-bot seats.
func (r *Room) HumanSeats() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Full reports whether all four seats are taken.
func (r *Room) Full() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)+len(r.bots) >= okey.Seats
}

// SuggestFor computes an opening hint for the user's current rack.
// Read-only, so it bypasses the event queue.
func (r *Room) SuggestFor(userID uint64) (okey.Suggestion, error) {
	seat, err := r.seatOf(userID)
	if err != nil {
		return okey.Suggestion{}, err
	}
	snap := r.game.Snapshot()
	p := snap.Players[seat]
	if p == nil {
		return okey.Suggestion{}, ErrNotSeated
	}
	return okey.SuggestMelds(p.Rack, snap.Okey, p.OpenMethod, 150*time.Millisecond), nil
}

func (r *Room) Finished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finished
}

// ---- event handling (actor goroutine only) ----

func (r *Room) handleEvent(e Event) error {
	switch e.Type {
	case EventJoin:
		return r.handleJoin(e)
	case EventAddBot:
		return r.handleAddBot(e)
	case EventAction:
		return r.handleAction(e)
	case EventState:
		r.sendStateTo(e.UserID)
		return nil
	case EventConnLost:
		if p, ok := r.players[e.UserID]; ok {
			p.Online = false
			p.LastSeen = e.Timestamp
		}
		return nil
	case EventConnResume:
		if p, ok := r.players[e.UserID]; ok {
			p.Online = true
			r.sendStateTo(e.UserID)
		}
		return nil
	case EventClose:
		r.Stop()
		return nil
	}
	return ErrRoomClosed
}

func (r *Room) handleJoin(e Event) error {
	if _, ok := r.players[e.UserID]; ok {
		r.sendStateTo(e.UserID)
		return nil
	}
	seat, err := r.game.Join(e.UserID, e.Nickname)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.players[e.UserID] = &PlayerConn{
		UserID:   e.UserID,
		Nickname: e.Nickname,
		Seat:     seat,
		Online:   true,
		LastSeen: e.Timestamp,
	}
	r.seats[seat] = e.UserID
	r.mu.Unlock()

	log.Printf("[Room %s] %s seated at %d", r.ID, e.Nickname, seat)
	r.broadcastState()
	r.scheduleBots()
	return nil
}

func (r *Room) handleAddBot(e Event) error {
	name := e.Nickname
	if name == "" {
		name = "bot"
	}
	// Bot identity rides on an impossible userID so the core can
	// track it like any other seat.
	botID := uint64(1_000_000 + len(r.bots))
	seat, err := r.game.Join(botID, name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.bots[seat] = bot.NewRuleBrain(name, r.Config.Seed+int64(seat)+1)
	r.mu.Unlock()

	log.Printf("[Room %s] bot %s seated at %d", r.ID, name, seat)
	r.broadcastState()
	r.scheduleBots()
	return nil
}

func (r *Room) handleAction(e Event) error {
	seat, err := r.seatOf(e.UserID)
	if err != nil {
		return err
	}
	if err := r.applyAction(seat, e); err != nil {
		return err
	}
	r.afterChange()
	return nil
}

func (r *Room) applyAction(seat int, e Event) error {
	switch e.Action {
	case ActionDraw:
		_, err := r.game.DrawStock(seat)
		return err
	case ActionDiscard:
		return r.game.Discard(seat, e.TileID)
	case ActionSidePickup:
		return r.game.SidePickup(seat)
	case ActionSidePass:
		return r.game.SidePass(seat)
	case ActionGrant:
		return r.game.GrantPermission(seat)
	case ActionDeny:
		return r.game.DenyPermission(seat)
	case ActionOpen:
		res, err := r.game.Open(seat, e.Slots)
		if err == nil && res.HeadBand != 0 {
			r.announce("head_band", map[string]any{
				"seat": seat, "adjust": res.HeadBand,
			})
		}
		return err
	case ActionDeclareDouble:
		err := r.game.DeclareDouble(seat)
		if err == nil {
			r.announce("double_declared", map[string]any{"seat": seat})
		}
		return err
	case ActionProcessTile:
		return r.game.ProcessTile(seat, e.TileID, e.TargetSeat, e.MeldIndex, e.SecondTileID)
	}
	return okey.ErrInvalidState("unknown action")
}

func (r *Room) seatOf(userID uint64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.players[userID]; ok {
		return p.Seat, nil
	}
	return okey.InvalidSeat, ErrNotSeated
}

// ---- tick (actor goroutine only) ----

func (r *Room) tick() {
	now := time.Now()

	for _, exp := range r.game.ExpireDue(now) {
		log.Printf("[Room %s] %s window expired for seat %d",
			r.ID, okey.WindowKindDictionary[exp.Kind], exp.Seat)
		r.announce("window_expired", map[string]any{
			"window": okey.WindowKindDictionary[exp.Kind],
			"seat":   exp.Seat,
		})
		r.afterChange()
	}

	snap := r.game.Snapshot()

	// Turn deadline: rearm whenever the turn moves.
	if snap.Phase != okey.PhaseRoundEnd && snap.Phase != okey.PhaseWaiting {
		if snap.TurnSeat != r.turnSeat {
			r.turnSeat = snap.TurnSeat
			r.turnDeadline = now.Add(r.Config.TurnTimeout)
		} else if !r.turnDeadline.IsZero() && now.After(r.turnDeadline) && !snap.ForcedOpen {
			r.autoPlay(snap)
			r.afterChange()
		}
	}

	if !r.nextRoundAt.IsZero() && now.After(r.nextRoundAt) {
		r.nextRoundAt = time.Time{}
		if err := r.game.DealRound(); err != nil {
			log.Printf("[Room %s] next deal failed: %v", r.ID, err)
		} else {
			log.Printf("[Room %s] round %d dealt", r.ID, r.game.Snapshot().RoundNumber)
			r.turnSeat = okey.InvalidSeat
			r.broadcastState()
			r.scheduleBots()
		}
	}

	if !r.botActAt.IsZero() && now.After(r.botActAt) {
		r.botActAt = time.Time{}
		r.runBots()
	}
}

// autoPlay plays the laziest legal move for a seat that ran out the
// turn clock: decline the offer, draw, put the drawn tile right back.
func (r *Room) autoPlay(snap okey.Snapshot) {
	seat := snap.TurnSeat
	log.Printf("[Room %s] seat %d timed out, auto-playing", r.ID, seat)

	if snap.Phase == okey.PhaseSidePickup {
		_ = r.game.SidePass(seat)
	}
	if drawn, err := r.game.DrawStock(seat); err == nil {
		_ = r.game.Discard(seat, drawn.ID)
		return
	}
	// Already drawn: shed the most recently acquired tile.
	cur := r.game.Snapshot()
	if p := cur.Players[seat]; p != nil && len(p.Rack) > 0 {
		_ = r.game.Discard(seat, p.Rack[len(p.Rack)-1].ID)
	}
}

// ---- bots (actor goroutine only) ----

func (r *Room) scheduleBots() {
	r.botActAt = time.Now().Add(botReactDelay)
}

// runBots lets whichever bot the game is waiting on act once.
func (r *Room) runBots() {
	snap := r.game.Snapshot()
	if snap.Phase == okey.PhaseRoundEnd || snap.Phase == okey.PhaseWaiting {
		return
	}

	actor := snap.TurnSeat
	if snap.Phase == okey.PhasePermission {
		actor = snap.WindowSeat
	}
	brain, ok := r.bots[actor]
	if !ok {
		return
	}

	view := r.botView(snap, actor)
	d := brain.Decide(view)
	if err := r.applyBotDecision(actor, d); err != nil {
		log.Printf("[Room %s] bot seat %d decision %d rejected: %v", r.ID, actor, d.Action, err)
		// 兜底：别让机器人卡住整桌。
		r.botFallback(actor)
	}
	r.afterChange()
}

func (r *Room) botView(snap okey.Snapshot, seat int) bot.GameView {
	p := snap.Players[seat]
	last := snap.LastDiscard
	return bot.GameView{
		Phase:          snap.Phase,
		Seat:           seat,
		Rack:           p.Rack,
		Okey:           snap.Okey,
		Threshold:      p.Threshold,
		Opened:         p.Opened,
		OpenMethod:     p.OpenMethod,
		DeclaredDouble: p.DeclaredDouble,
		ForcedOpen:     snap.ForcedOpen,
		LastDiscard:    last,
		LastDiscarder:  snap.LastDiscarder,
		TableMelds:     snap.TableMelds(),
		StockCount:     snap.StockCount,
	}
}

func (r *Room) applyBotDecision(seat int, d bot.Decision) error {
	switch d.Action {
	case bot.ActionDraw:
		_, err := r.game.DrawStock(seat)
		return err
	case bot.ActionSidePickup:
		return r.game.SidePickup(seat)
	case bot.ActionSidePass:
		return r.game.SidePass(seat)
	case bot.ActionGrant:
		return r.game.GrantPermission(seat)
	case bot.ActionDeny:
		return r.game.DenyPermission(seat)
	case bot.ActionOpen:
		_, err := r.game.Open(seat, d.Slots)
		return err
	case bot.ActionDiscard:
		return r.game.Discard(seat, d.TileID)
	case bot.ActionDeclareDouble:
		return r.game.DeclareDouble(seat)
	}
	return nil
}

func (r *Room) botFallback(seat int) {
	snap := r.game.Snapshot()
	switch snap.Phase {
	case okey.PhaseSidePickup:
		_ = r.game.SidePass(seat)
	case okey.PhasePermission:
		_ = r.game.GrantPermission(seat)
	case okey.PhaseDraw:
		if drawn, err := r.game.DrawStock(seat); err == nil {
			_ = r.game.Discard(seat, drawn.ID)
		}
	case okey.PhaseDiscard:
		if p := snap.Players[seat]; p != nil && len(p.Rack) > 0 {
			_ = r.game.Discard(seat, p.Rack[len(p.Rack)-1].ID)
		}
	}
}

// ---- state fanout and settlement (actor goroutine only) ----

// afterChange is called after every successful mutation: fan out the
// new state, settle the round if it just ended, keep the bots moving.
func (r *Room) afterChange() {
	r.broadcastState()

	snap := r.game.Snapshot()
	if snap.Phase == okey.PhaseRoundEnd && snap.RoundNumber > r.roundsSeen {
		r.settleRound(snap)
	}
	r.scheduleBots()
}

func (r *Room) settleRound(snap okey.Snapshot) {
	res := r.game.LastResult()
	if res == nil {
		return
	}
	r.roundsSeen = res.Round
	final := res.Round >= r.Config.Rounds

	var names [4]string
	for s, p := range snap.Players {
		if p != nil {
			names[s] = p.Name
		}
	}
	view := codec.ResultView(*res, names, final)
	r.announce("round_ended", view)
	log.Printf("[Room %s] round %d ended: winner=%d reason=%q",
		r.ID, res.Round, res.Winner, res.Reason)

	rec := ledger.RoundRecord{
		RoomID:   r.ID,
		Round:    res.Round,
		Winner:   res.Winner,
		Reason:   res.Reason,
		PlayedAt: time.Now().UTC(),
	}
	for s := range rec.Seats {
		rec.Seats[s] = ledger.SeatResult{
			UserID: seatUserID(snap, s),
			Name:   names[s],
			Delta:  res.Deltas[s],
			Score:  res.Scores[s],
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.ledger.RecordRound(ctx, rec); err != nil {
		log.Printf("[Room %s] ledger write failed: %v", r.ID, err)
	}

	r.mu.RLock()
	hooks := append([]RoundEndHook(nil), r.roundEndHooks...)
	r.mu.RUnlock()
	info := RoundEndInfo{RoomID: r.ID, Result: *res, Snapshot: snap, Final: final}
	for _, h := range hooks {
		go func(h RoundEndHook) {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("[Room %s] round end hook panic: %v", r.ID, p)
				}
			}()
			h(info)
		}(h)
	}

	if final {
		r.mu.Lock()
		r.finished = true
		r.mu.Unlock()
		log.Printf("[Room %s] sitting complete after %d rounds", r.ID, res.Round)
		return
	}
	r.nextRoundAt = time.Now().Add(interRoundDelay)
}

func seatUserID(snap okey.Snapshot, seat int) uint64 {
	if p := snap.Players[seat]; p != nil {
		return p.UserID
	}
	return 0
}

func (r *Room) broadcastState() {
	snap := r.game.Snapshot()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for userID, p := range r.players {
		data, err := codec.Encode("state", codec.StateForSeat(r.ID, snap, p.Seat))
		if err != nil {
			continue
		}
		r.broadcast(userID, data)
	}
}

func (r *Room) sendStateTo(userID uint64) {
	r.mu.RLock()
	p, ok := r.players[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	snap := r.game.Snapshot()
	if data, err := codec.Encode("state", codec.StateForSeat(r.ID, snap, p.Seat)); err == nil {
		r.broadcast(userID, data)
	}
}

// announce sends a banner-style notice to every human seat.
func (r *Room) announce(kind string, payload any) {
	data, err := codec.Encode(kind, payload)
	if err != nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for userID := range r.players {
		r.broadcast(userID, data)
	}
}
