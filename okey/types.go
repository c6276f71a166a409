package okey

import "time"

// Seats 固定 4 人桌。
const Seats = 4

const InvalidSeat = -1

// Phase 回合阶段
type Phase byte

const (
	PhaseWaiting    Phase = 0 // 等待成局
	PhaseSidePickup Phase = 1 // 上家弃牌可拿，等待当前玩家表态
	PhasePermission Phase = 2 // 等待弃牌者允许/拒绝
	PhaseDraw       Phase = 3 // 当前玩家摸牌
	PhaseDiscard    Phase = 4 // 当前玩家打牌（开牌/接牌也在这个阶段）
	PhaseRoundEnd   Phase = 5
)

var PhaseDictionary = map[Phase]string{
	PhaseWaiting:    "waiting",
	PhaseSidePickup: "side-pickup",
	PhasePermission: "permission",
	PhaseDraw:       "draw",
	PhaseDiscard:    "discard",
	PhaseRoundEnd:   "roundend",
}

// MeldKind 牌组类型
type MeldKind byte

const (
	MeldNone MeldKind = 0
	MeldRun  MeldKind = 1 // 同色顺子
	MeldSet  MeldKind = 2 // 同点异色
	MeldPair MeldKind = 3 // 对子
)

var MeldKindDictionary = map[MeldKind]string{
	MeldNone: "none",
	MeldRun:  "run",
	MeldSet:  "set",
	MeldPair: "pair",
}

// OpenMethod 开牌方式，首次开牌后锁定。
type OpenMethod byte

const (
	OpenNone   OpenMethod = 0
	OpenRunSet OpenMethod = 1
	OpenPair   OpenMethod = 2
)

var OpenMethodDictionary = map[OpenMethod]string{
	OpenNone:   "",
	OpenRunSet: "run-or-set",
	OpenPair:   "pair",
}

// WindowKind 计时窗口类型
type WindowKind byte

const (
	WindowNone       WindowKind = 0
	WindowSidePickup WindowKind = 1 // 默认放弃
	WindowPermission WindowKind = 2 // 默认同意（故意偏向请求方）
	WindowForcedOpen WindowKind = 3
)

var WindowKindDictionary = map[WindowKind]string{
	WindowNone:       "",
	WindowSidePickup: "side-pickup",
	WindowPermission: "permission",
	WindowForcedOpen: "forced-open",
}

// 阈值与罚分常量
const (
	BaseOpenThreshold   = 81
	RaisedOpenThreshold = 101 // 有人宣布“çifte”后其余玩家的门槛

	WinnerBonus        = -100
	HeadAdjustment     = -100
	DoubleHeadAdjust   = -200
	UnopenedPenalty    = 100
	RefusedPenalty     = 200 // 未开牌且拒绝过许可
	PlayableDiscardFee = 100 // 打出活牌（işlek）
	ForcedOpenPenalty  = 100 // 强制开牌超时
)

// 默认窗口时长
const (
	DefaultSidePickupWindow = 8 * time.Second
	DefaultPermissionWindow = 10 * time.Second
	DefaultForcedOpenWindow = 30 * time.Second
)
