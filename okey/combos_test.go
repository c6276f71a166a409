package okey

import (
	"testing"

	"okey81-lite/tile"
)

func tl(id int, c tile.Color, n int) tile.Tile {
	return tile.Tile{ID: id, Number: n, Color: c}
}

func fakeTl(id int) tile.Tile {
	return tile.Tile{ID: id, FakePrint: true}
}

// 这局的 OKEY 固定为黑 4，测试里所有假 OKEY 都按 4 计。
var testOkey = Okey{Number: 4, Color: tile.Black}

func mustValid(t *testing.T, tiles []tile.Tile, want MeldKind) {
	t.Helper()
	res, err := ValidateGroup(tiles, testOkey)
	if err != nil {
		t.Fatalf("ValidateGroup err: %v", err)
	}
	if !res.Valid || res.Kind != want {
		t.Fatalf("group %v: got valid=%v kind=%v, want %v (%s)",
			tiles, res.Valid, res.Kind, want, res.Reason)
	}
}

func mustInvalid(t *testing.T, tiles []tile.Tile) {
	t.Helper()
	res, err := ValidateGroup(tiles, testOkey)
	if err != nil {
		t.Fatalf("ValidateGroup err: %v", err)
	}
	if res.Valid {
		t.Fatalf("group %v unexpectedly valid as %v", tiles, res.Kind)
	}
}

func TestValidateRun(t *testing.T) {
	mustValid(t, []tile.Tile{tl(1, tile.Red, 3), tl(2, tile.Red, 4), tl(3, tile.Red, 5)}, MeldRun)
	// 12-13-1 两个方向都不许回绕。
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 12), tl(2, tile.Red, 13), tl(3, tile.Red, 1)})
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 1), tl(2, tile.Red, 13), tl(3, tile.Red, 12)})
	// 异色不是顺子。
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 3), tl(2, tile.Blue, 4), tl(3, tile.Red, 5)})
	// 重复点数不是顺子。
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 3), tl(2, tile.Red, 3), tl(3, tile.Red, 4)})
}

func TestValidateRunWithWilds(t *testing.T) {
	// 万能牌填内部空隙。
	mustValid(t, []tile.Tile{tl(1, tile.Red, 3), fakeTl(105), tl(2, tile.Red, 5)}, MeldRun)
	// 空隙太大填不满。
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 3), fakeTl(105), tl(2, tile.Red, 7)})
	// 富余的万能牌向上延伸，越过 13 折回下端。
	mustValid(t, []tile.Tile{tl(1, tile.Red, 12), tl(2, tile.Red, 13), fakeTl(105)}, MeldRun)
	// 1-13 全占后再延伸不动了。
	tiles := []tile.Tile{}
	for n := 1; n <= 13; n++ {
		tiles = append(tiles, tl(n, tile.Red, n))
	}
	mustInvalid(t, append(tiles, fakeTl(105)))
	// 真 OKEY（黑4）也是万能牌。
	mustValid(t, []tile.Tile{tl(1, tile.Red, 7), tl(2, tile.Black, 4), tl(3, tile.Red, 9)}, MeldRun)
}

func TestValidateSet(t *testing.T) {
	mustValid(t, []tile.Tile{tl(1, tile.Red, 7), tl(2, tile.Blue, 7), tl(3, tile.Yellow, 7)}, MeldSet)
	mustValid(t, []tile.Tile{
		tl(1, tile.Red, 7), tl(2, tile.Blue, 7), tl(3, tile.Yellow, 7), tl(4, tile.Black, 7),
	}, MeldSet)
	// 同色重复不行。
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 7), tl(2, tile.Red, 7), tl(3, tile.Yellow, 7)})
	// 三实牌 + 两万能超出 4 张上限，也不是顺子。
	mustInvalid(t, []tile.Tile{
		tl(1, tile.Red, 7), tl(2, tile.Blue, 7), tl(3, tile.Yellow, 7), fakeTl(105), fakeTl(106),
	})
	// 全万能 3 张按同点组算。
	mustValid(t, []tile.Tile{fakeTl(105), fakeTl(106), tl(1, tile.Black, 4)}, MeldSet)
}

func TestValidatePair(t *testing.T) {
	mustValid(t, []tile.Tile{tl(1, tile.Red, 5), tl(54, tile.Red, 5)}, MeldPair)
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 5), tl(2, tile.Blue, 5)})
	mustInvalid(t, []tile.Tile{tl(1, tile.Red, 5), tl(2, tile.Red, 6)})
	mustValid(t, []tile.Tile{tl(1, tile.Red, 5), fakeTl(105)}, MeldPair)
	mustValid(t, []tile.Tile{fakeTl(105), fakeTl(106)}, MeldPair)
}

func TestValidateGroupInputShape(t *testing.T) {
	if _, err := ValidateGroup([]tile.Tile{tl(1, tile.Red, 5)}, testOkey); err == nil {
		t.Fatal("single tile should be an input error")
	}
}

func TestMeldAssignedValues(t *testing.T) {
	// 3-[假]-5：万能按位置记 4 分，总分 3+4+5=12。
	ok := Okey{Number: 9, Color: tile.Black}
	m := Meld{Kind: MeldRun, Tiles: tile.List{tl(1, tile.Red, 3), fakeTl(105), tl(2, tile.Red, 5)}}
	vals := m.AssignedValues(ok)
	if vals[0] != 3 || vals[1] != 4 || vals[2] != 5 {
		t.Fatalf("assigned values = %v, want [3 4 5]", vals)
	}
	if m.Points(ok) != 12 {
		t.Fatalf("points = %d, want 12", m.Points(ok))
	}

	// 同点组里万能记组点数。
	m = Meld{Kind: MeldSet, Tiles: tile.List{tl(1, tile.Red, 7), tl(2, tile.Blue, 7), fakeTl(105)}}
	if m.Points(ok) != 21 {
		t.Fatalf("set points = %d, want 21", m.Points(ok))
	}
}

func TestJokerIndicatorRound(t *testing.T) {
	// 指示牌是假 OKEY：只有印花牌是万能，真牌没有万能身份。
	ok := DeriveOkey(tile.Tile{ID: 105, FakePrint: true})
	if !ok.Joker {
		t.Fatal("expected joker round")
	}
	if !ok.IsWild(fakeTl(106)) {
		t.Fatal("fake print must stay wild")
	}
	if ok.IsWild(tl(1, tile.Black, 4)) {
		t.Fatal("no concrete tile is wild in a joker round")
	}
}

func TestDeriveOkey(t *testing.T) {
	ok := DeriveOkey(tl(1, tile.Blue, 7))
	if ok.Number != 8 || ok.Color != tile.Blue {
		t.Fatalf("okey = %+v, want blue 8", ok)
	}
	ok = DeriveOkey(tl(1, tile.Red, 13))
	if ok.Number != 1 || ok.Color != tile.Red {
		t.Fatalf("okey = %+v, want red 1 (13 wraps)", ok)
	}
}
