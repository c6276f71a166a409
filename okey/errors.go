package okey

import "errors"

var (
	ErrRoundEnded   = errors.New("round already ended")
	ErrOutOfTurn    = errors.New("action out of turn")
	ErrStockEmpty   = errors.New("stock is empty")
	ErrTileNotOwned = errors.New("tile not in rack")
	ErrTooFewTiles  = errors.New("group needs at least 2 tiles")
)

// InvalidStateError 阶段/状态错误（动作本身合法，但当前状态不允许）。
type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }

// RuleError 规则拒绝：给玩家看的原因文本，状态不变。
type RuleError string

func (e RuleError) Error() string { return string(e) }

func ErrRule(msg string) error { return RuleError(msg) }
