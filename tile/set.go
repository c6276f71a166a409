package tile

import "math/rand"

// SetSize 整副牌张数: 4 色 × 13 点 × 2 份 + 2 张假 OKEY。
const SetSize = 106

// NewSet 生成完整一副 106 张牌，id 依次 1..106。
// 两份拷贝在外层循环，和每色两张的物理牌盒顺序一致。
func NewSet() []Tile {
	tiles := make([]Tile, 0, SetSize)
	id := 1
	for copyNo := 0; copyNo < 2; copyNo++ {
		for _, c := range Colors {
			for n := 1; n <= 13; n++ {
				tiles = append(tiles, Tile{ID: id, Number: n, Color: c})
				id++
			}
		}
	}
	tiles = append(tiles, Tile{ID: id, FakePrint: true})
	id++
	tiles = append(tiles, Tile{ID: id, FakePrint: true})
	return tiles
}

// Shuffle 用传入的 rng 原地洗牌，保证可重放。
func Shuffle(tiles []Tile, rng *rand.Rand) {
	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
}
