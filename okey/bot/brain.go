package bot

import (
	"okey81-lite/okey"
	"okey81-lite/tile"
)

// GameView is a read-only projection of the room state visible to the bot.
// It never includes other seats' racks.
type GameView struct {
	Phase     okey.Phase
	Seat      int
	Rack      tile.List
	Okey      okey.Okey
	Threshold int

	Opened         bool
	OpenMethod     okey.OpenMethod
	DeclaredDouble bool
	ForcedOpen     bool

	LastDiscard   *tile.Tile
	LastDiscarder int
	TableMelds    []okey.Meld
	StockCount    int
}

// Action is the verb a decision maps to on the room actor.
type Action byte

const (
	ActionNone          Action = 0
	ActionDraw          Action = 1
	ActionSidePickup    Action = 2
	ActionSidePass      Action = 3
	ActionGrant         Action = 4
	ActionDeny          Action = 5
	ActionOpen          Action = 6
	ActionDiscard       Action = 7
	ActionDeclareDouble Action = 8
)

// Decision is what a BrainDecider returns.
type Decision struct {
	Action Action
	TileID int   // discard
	Slots  []int // opening layout, 28 ids with zeros for gaps
}

// BrainDecider is the interface all bot types implement.
type BrainDecider interface {
	// Decide is called when the room is waiting on the bot's seat.
	Decide(view GameView) Decision
	// Name returns a human-readable identifier for debugging.
	Name() string
}
