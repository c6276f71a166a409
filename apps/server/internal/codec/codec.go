// Package codec converts core snapshots into wire views.
// Pure conversion only: no locks, no IO, no game logic.
package codec

import (
	"encoding/json"

	"okey81-lite/okey"
	"okey81-lite/tile"
)

// ServerMsg is the outbound JSON envelope.
type ServerMsg struct {
	T     string `json:"t"`
	ReqID string `json:"req_id,omitempty"`
	P     any    `json:"p,omitempty"`
}

// ClientMsg is the inbound JSON envelope; P stays raw until the type
// is known.
type ClientMsg struct {
	T     string          `json:"t"`
	ReqID string          `json:"req_id,omitempty"`
	P     json.RawMessage `json:"p,omitempty"`
}

// Encode marshals an outbound envelope.
func Encode(t string, payload any) ([]byte, error) {
	return json.Marshal(ServerMsg{T: t, P: payload})
}

type TileView struct {
	ID     int    `json:"id"`
	Number int    `json:"number,omitempty"`
	Color  string `json:"color,omitempty"`
	Fake   bool   `json:"fake,omitempty"`
}

type OkeyView struct {
	Number int    `json:"number"`
	Color  string `json:"color"`
	Joker  bool   `json:"joker,omitempty"`
}

type MeldView struct {
	Kind  string     `json:"kind"`
	Tiles []TileView `json:"tiles"`
}

// SeatSummary is the public face of one seat: never the rack itself.
type SeatSummary struct {
	Seat              int        `json:"seat"`
	Name              string     `json:"name"`
	TileCount         int        `json:"tile_count"`
	Opened            bool       `json:"opened"`
	OpenMethod        string     `json:"open_method,omitempty"`
	Melds             []MeldView `json:"melds,omitempty"`
	Score             int        `json:"score"`
	Threshold         int        `json:"threshold"`
	DeclaredDouble    bool       `json:"declared_double,omitempty"`
	RefusedPermission bool       `json:"refused_permission,omitempty"`
}

// StateView is the per-seat filtered room state.
type StateView struct {
	RoomID string `json:"room_id"`
	Seat   int    `json:"seat"`
	Phase  string `json:"phase"`
	Round  int    `json:"round"`

	Rack          []TileView `json:"rack"`
	PlayableTiles []int      `json:"playable_tiles,omitempty"`

	Seats []SeatSummary `json:"seats"`

	StockCount      int       `json:"stock_count"`
	LastDiscard     *TileView `json:"last_discard,omitempty"`
	LastDiscardSeat int       `json:"last_discard_seat"`

	Indicator TileView `json:"indicator"`
	Okey      OkeyView `json:"okey"`

	TurnSeat int  `json:"turn_seat"`
	HasDrawn bool `json:"has_drawn"`

	Window         string `json:"window,omitempty"`
	WindowSeat     int    `json:"window_seat,omitempty"`
	WindowSecsLeft int    `json:"window_secs_left,omitempty"`
	ForcedOpen     bool   `json:"forced_open,omitempty"`
	ForcedSecsLeft int    `json:"forced_secs_left,omitempty"`

	Winner int `json:"winner"`
}

// SuggestionView carries a server-computed opening hint.
type SuggestionView struct {
	Method   string     `json:"method"`
	Melds    []MeldView `json:"melds"`
	Leftover []TileView `json:"leftover"`
	Total    int        `json:"total"`
	Pairs    int        `json:"pairs"`
}

// RoundResultView terminates a round on the wire.
type RoundResultView struct {
	Round  int       `json:"round"`
	Winner int       `json:"winner"`
	Reason string    `json:"reason"`
	Deltas [4]int    `json:"deltas"`
	Scores [4]int    `json:"scores"`
	Names  [4]string `json:"names"`
	Final  bool      `json:"final,omitempty"`
}

func ViewOfTile(t tile.Tile) TileView {
	if t.FakePrint {
		return TileView{ID: t.ID, Fake: true}
	}
	return TileView{ID: t.ID, Number: t.Number, Color: t.Color.String()}
}

func viewOfTiles(ts tile.List) []TileView {
	out := make([]TileView, 0, len(ts))
	for _, t := range ts {
		out = append(out, ViewOfTile(t))
	}
	return out
}

func viewOfMelds(ms []okey.Meld) []MeldView {
	out := make([]MeldView, 0, len(ms))
	for _, m := range ms {
		out = append(out, MeldView{
			Kind:  okey.MeldKindDictionary[m.Kind],
			Tiles: viewOfTiles(m.Tiles),
		})
	}
	return out
}

// ViewOfSuggestion converts an engine suggestion for the wire.
func ViewOfSuggestion(s okey.Suggestion) SuggestionView {
	return SuggestionView{
		Method:   okey.OpenMethodDictionary[s.Method],
		Melds:    viewOfMelds(s.Melds),
		Leftover: viewOfTiles(s.Leftover),
		Total:    s.Total,
		Pairs:    s.Pairs,
	}
}

// StateForSeat builds the outbound view for one seat. Other racks are
// reduced to tile counts; everything on the table stays visible.
func StateForSeat(roomID string, snap okey.Snapshot, seat int) StateView {
	v := StateView{
		RoomID:          roomID,
		Seat:            seat,
		Phase:           okey.PhaseDictionary[snap.Phase],
		Round:           snap.RoundNumber,
		StockCount:      snap.StockCount,
		LastDiscardSeat: snap.LastDiscarder,
		Indicator:       ViewOfTile(snap.Indicator),
		Okey: OkeyView{
			Number: snap.Okey.Number,
			Color:  snap.Okey.Color.String(),
			Joker:  snap.Okey.Joker,
		},
		TurnSeat:   snap.TurnSeat,
		HasDrawn:   snap.HasDrawn,
		Window:     okey.WindowKindDictionary[snap.Window],
		WindowSeat: snap.WindowSeat,
		ForcedOpen: snap.ForcedOpen,
		Winner:     snap.Winner,
	}
	if snap.LastDiscard != nil {
		lv := ViewOfTile(*snap.LastDiscard)
		v.LastDiscard = &lv
	}
	if snap.WindowRemaining > 0 {
		v.WindowSecsLeft = int(snap.WindowRemaining.Seconds() + 0.5)
	}
	if snap.ForcedOpenRemaining > 0 {
		v.ForcedSecsLeft = int(snap.ForcedOpenRemaining.Seconds() + 0.5)
	}

	table := snap.TableMelds()
	for s, p := range snap.Players {
		if p == nil {
			continue
		}
		sum := SeatSummary{
			Seat:              s,
			Name:              p.Name,
			TileCount:         len(p.Rack),
			Opened:            p.Opened,
			OpenMethod:        okey.OpenMethodDictionary[p.OpenMethod],
			Melds:             viewOfMelds(p.Melds),
			Score:             p.Score,
			Threshold:         p.Threshold,
			DeclaredDouble:    p.DeclaredDouble,
			RefusedPermission: p.RefusedPermission,
		}
		v.Seats = append(v.Seats, sum)
		if s == seat {
			v.Rack = viewOfTiles(p.Rack)
			v.PlayableTiles = okey.PlayableTiles(p.Rack, table, snap.Okey)
		}
	}
	return v
}

// ResultView converts a round settlement for the wire.
func ResultView(res okey.RoundResult, names [4]string, final bool) RoundResultView {
	return RoundResultView{
		Round:  res.Round,
		Winner: res.Winner,
		Reason: res.Reason,
		Deltas: res.Deltas,
		Scores: res.Scores,
		Names:  names,
		Final:  final,
	}
}
