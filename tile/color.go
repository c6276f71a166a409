package tile

type Color byte

const (
	Red    Color = iota // 红
	Yellow              // 黄
	Blue                // 蓝
	Black               // 黑
)

// ColorJoker 表示“指示牌是假 OKEY”那一局的虚拟花色：
// 该局没有具体的 OKEY 值，两张假 OKEY 直接充当万能牌。
const ColorJoker Color = 0xF0

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Blue:
		return "blue"
	case Black:
		return "black"
	case ColorJoker:
		return "joker"
	}
	return "?"
}

// Colors 四个实色，顺序固定（id 编码依赖这个顺序）。
var Colors = [4]Color{Red, Yellow, Blue, Black}
