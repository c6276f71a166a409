package tile

import "fmt"

// Tile 牌实体。
//
// 编码规则:
// - ID: 1..106，全局唯一，永不改变
// - Number: 1..13；假 OKEY（印花牌）为 0
// - FakePrint: 假 OKEY 印花牌，本身无点数/花色，入组时借用 OKEY 的值
//
// 一张牌在验牌/算分时的“有效值”由上下文决定（见 okey 包的解析函数），
// 这里只承载不变的身份。
type Tile struct {
	ID        int
	Number    int
	Color     Color
	FakePrint bool
}

func (t Tile) String() string {
	if t.FakePrint {
		return fmt.Sprintf("FAKE#%d", t.ID)
	}
	return fmt.Sprintf("%s-%d#%d", t.Color, t.Number, t.ID)
}

// Short 不带 id 的短形式，日志里用。
func (t Tile) Short() string {
	if t.FakePrint {
		return "FAKE"
	}
	return fmt.Sprintf("%s%d", colorLetter(t.Color), t.Number)
}

func colorLetter(c Color) string {
	switch c {
	case Red:
		return "R"
	case Yellow:
		return "Y"
	case Blue:
		return "B"
	case Black:
		return "K"
	}
	return "?"
}
