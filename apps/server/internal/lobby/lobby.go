package lobby

import (
	"fmt"
	"log"
	"sync"
	"time"

	"okey81-lite/apps/server/internal/ledger"
	"okey81-lite/apps/server/internal/table"

	"github.com/google/uuid"
)

// 凑不齐真人时补位机器人前的等待时长。
const botFillDelay = 3 * time.Second

var botNames = []string{"Deniz", "Kaya", "Mert", "Selin", "Ece", "Baran"}

// Lobby 维护房间注册表并负责快速开局的座位分配。
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*table.Room

	defaultConfig table.RoomConfig
	ledger        ledger.Service
}

func New(ledgerService ledger.Service) *Lobby {
	if ledgerService == nil {
		ledgerService = ledger.NewNoop()
	}
	return &Lobby{
		rooms:         make(map[string]*table.Room),
		defaultConfig: table.RoomConfig{},
		ledger:        ledgerService,
	}
}

// QuickStart 把玩家放进一个未满的房间, 没有就新建。
// 开房后延迟几秒, 仍然缺人的座位用机器人补齐。
func (l *Lobby) QuickStart(
	userID uint64,
	nickname string,
	broadcastFn func(userID uint64, data []byte),
) (*table.Room, error) {
	room, created, err := l.pickOrCreate(broadcastFn)
	if err != nil {
		return nil, err
	}

	if err := room.SubmitEvent(table.Event{
		Type:     table.EventJoin,
		UserID:   userID,
		Nickname: nickname,
	}); err != nil {
		return nil, err
	}

	if created {
		log.Printf("[Lobby] QuickStart: user %d opened room %s", userID, room.ID)
		roomID := room.ID
		time.AfterFunc(botFillDelay, func() { l.fillWithBots(roomID) })
	} else {
		log.Printf("[Lobby] QuickStart: user %d joined room %s", userID, room.ID)
	}
	return room, nil
}

func (l *Lobby) pickOrCreate(broadcastFn func(userID uint64, data []byte)) (*table.Room, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, r := range l.rooms {
		if r.Finished() {
			r.Stop()
			delete(l.rooms, id)
			continue
		}
		if !r.Full() {
			return r, false, nil
		}
	}

	roomID := uuid.NewString()
	r, err := table.New(roomID, l.defaultConfig, broadcastFn, l.ledger)
	if err != nil {
		return nil, false, fmt.Errorf("create room: %w", err)
	}
	l.rooms[roomID] = r
	return r, true, nil
}

// fillWithBots 给仍未满员的房间补机器人, 满员后由牌局自动发牌。
func (l *Lobby) fillWithBots(roomID string) {
	r := l.Get(roomID)
	if r == nil || r.Finished() {
		return
	}
	for i := 0; !r.Full() && i < len(botNames); i++ {
		err := r.SubmitEvent(table.Event{
			Type:     table.EventAddBot,
			Nickname: botNames[i],
		})
		if err != nil {
			log.Printf("[Lobby] fill bots for room %s failed: %v", roomID, err)
			return
		}
	}
}

func (l *Lobby) Get(roomID string) *table.Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rooms[roomID]
}

// RoomOf 返回某玩家当前所在的房间, 没有则为 nil。
func (l *Lobby) RoomOf(userID uint64) *table.Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.rooms {
		if r.Seated(userID) {
			return r
		}
	}
	return nil
}

func (l *Lobby) ListRooms() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.rooms))
	for id := range l.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown 停掉所有房间, 进程退出前调用。
func (l *Lobby) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, r := range l.rooms {
		r.Stop()
		delete(l.rooms, id)
	}
}
