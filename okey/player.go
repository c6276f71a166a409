package okey

import "okey81-lite/tile"

// Player 一个座位的全部回合内状态。字段只在 Game 的锁内被改动。
type Player struct {
	seat   int
	userID uint64
	name   string

	rack  tile.List
	melds []Meld

	opened     bool
	openMethod OpenMethod
	threshold  int

	declaredDouble    bool
	refusedPermission bool // 拒绝过一次许可请求，罚分翻倍
	forbiddenDonors   map[int]bool

	score int
}

func newPlayer(seat int, userID uint64, name string, threshold int) *Player {
	return &Player{
		seat:            seat,
		userID:          userID,
		name:            name,
		threshold:       threshold,
		forbiddenDonors: make(map[int]bool),
	}
}

func (p *Player) Seat() int               { return p.seat }
func (p *Player) UserID() uint64          { return p.userID }
func (p *Player) Name() string            { return p.name }
func (p *Player) Opened() bool            { return p.opened }
func (p *Player) OpenMethod() OpenMethod  { return p.openMethod }
func (p *Player) Score() int              { return p.score }
func (p *Player) DeclaredDouble() bool    { return p.declaredDouble }
func (p *Player) RefusedPermission() bool { return p.refusedPermission }

// resetRound 清掉回合内状态，分数和座位保留。
func (p *Player) resetRound(threshold int) {
	p.rack = nil
	p.melds = nil
	p.opened = false
	p.openMethod = OpenNone
	p.threshold = threshold
	p.declaredDouble = false
	p.refusedPermission = false
	p.forbiddenDonors = make(map[int]bool)
}

func (p *Player) ownsTile(id int) bool {
	return p.rack.Find(id) >= 0
}
