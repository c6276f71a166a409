package okey

import (
	"testing"

	"okey81-lite/tile"
)

// layout 把各组依次摆进 28 格，组间留一个空格。
func layout(groups ...[]tile.Tile) []tile.Tile {
	slots := make([]tile.Tile, RackSlots)
	i := 0
	for _, g := range groups {
		for _, t := range g {
			slots[i] = t
			i++
		}
		i++ // 空格断组
	}
	return slots
}

func TestGroupSlots(t *testing.T) {
	slots := make([]tile.Tile, RackSlots)
	slots[0] = tl(1, tile.Red, 3)
	slots[1] = tl(2, tile.Red, 4)
	slots[2] = tl(3, tile.Red, 5)
	slots[12] = tl(4, tile.Blue, 7)
	slots[13] = tl(5, tile.Yellow, 7) // 行尾
	slots[14] = tl(6, tile.Black, 7)  // 第二行开头：新组
	groups := GroupSlots(slots)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3 (row boundary must split)", len(groups))
	}
	if len(groups[1]) != 2 || len(groups[2]) != 1 {
		t.Fatalf("row boundary grouping wrong: %v", groups)
	}
}

func TestFirstOpeningThreshold(t *testing.T) {
	// 13 同点组 (39) + 12 同点组 (36) + 1-2-3 顺子 (6) = 81：正好过线。
	open81 := layout(
		[]tile.Tile{tl(1, tile.Red, 13), tl(2, tile.Blue, 13), tl(3, tile.Yellow, 13)},
		[]tile.Tile{tl(4, tile.Red, 12), tl(5, tile.Blue, 12), tl(6, tile.Yellow, 12)},
		[]tile.Tile{tl(7, tile.Red, 1), tl(8, tile.Red, 2), tl(9, tile.Red, 3)},
	)
	res, err := EvaluateOpening(open81, testOkey, BaseOpenThreshold, false, OpenNone, false)
	if err != nil {
		t.Fatalf("81 points must open: %v", err)
	}
	if res.Method != OpenRunSet || res.Total != 81 || res.HeadBand != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	// 12 同点组 (36) + 11 同点组 ×4 (44) = 80：差一分。
	open80 := layout(
		[]tile.Tile{tl(1, tile.Red, 12), tl(2, tile.Blue, 12), tl(3, tile.Yellow, 12)},
		[]tile.Tile{tl(4, tile.Red, 11), tl(5, tile.Blue, 11), tl(6, tile.Yellow, 11), tl(7, tile.Black, 11)},
	)
	if _, err := EvaluateOpening(open80, testOkey, BaseOpenThreshold, false, OpenNone, false); err == nil {
		t.Fatal("80 points must not open at threshold 81")
	}
}

func TestFirstOpeningHeadBands(t *testing.T) {
	// 39 + 36 + 26 = 101 → kafa (-100)。
	open101 := layout(
		[]tile.Tile{tl(1, tile.Red, 13), tl(2, tile.Blue, 13), tl(3, tile.Yellow, 13)},
		[]tile.Tile{tl(4, tile.Red, 12), tl(5, tile.Blue, 12), tl(6, tile.Yellow, 12)},
		[]tile.Tile{tl(7, tile.Red, 5), tl(8, tile.Red, 6), tl(9, tile.Red, 7), tl(10, tile.Red, 8)},
	)
	res, err := EvaluateOpening(open101, testOkey, BaseOpenThreshold, false, OpenNone, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 101 || res.HeadBand != HeadAdjustment {
		t.Fatalf("101 should band -100: %+v", res)
	}
}

func TestPairOpening(t *testing.T) {
	pairs := layout(
		[]tile.Tile{tl(1, tile.Red, 5), tl(2, tile.Red, 5)},
		[]tile.Tile{tl(3, tile.Blue, 9), tl(4, tile.Blue, 9)},
		[]tile.Tile{tl(5, tile.Yellow, 2), tl(6, tile.Yellow, 2)},
		[]tile.Tile{tl(7, tile.Black, 11), tl(8, tile.Black, 11)},
	)
	res, err := EvaluateOpening(pairs, testOkey, BaseOpenThreshold, false, OpenNone, false)
	if err != nil {
		t.Fatalf("4 pairs must open: %v", err)
	}
	if res.Method != OpenPair || res.PairCount != 4 || res.HeadBand != 0 {
		t.Fatalf("unexpected pair result: %+v", res)
	}

	three := layout(
		[]tile.Tile{tl(1, tile.Red, 5), tl(2, tile.Red, 5)},
		[]tile.Tile{tl(3, tile.Blue, 9), tl(4, tile.Blue, 9)},
		[]tile.Tile{tl(5, tile.Yellow, 2), tl(6, tile.Yellow, 2)},
	)
	if _, err := EvaluateOpening(three, testOkey, BaseOpenThreshold, false, OpenNone, false); err == nil {
		t.Fatal("3 pairs must not open")
	}
}

func TestPairOpeningHeadBands(t *testing.T) {
	mk := func(n int) []tile.Tile {
		var groups [][]tile.Tile
		for i := 0; i < n; i++ {
			num := i + 1
			groups = append(groups, []tile.Tile{
				tl(i*2+1, tile.Red, num), tl(i*2+2, tile.Red, num),
			})
		}
		return layout(groups...)
	}
	res, err := EvaluateOpening(mk(5), testOkey, BaseOpenThreshold, false, OpenNone, false)
	if err != nil || res.HeadBand != HeadAdjustment {
		t.Fatalf("5 pairs should band -100: %+v %v", res, err)
	}
	res, err = EvaluateOpening(mk(6), testOkey, BaseOpenThreshold, false, OpenNone, false)
	if err != nil || res.HeadBand != DoubleHeadAdjust {
		t.Fatalf("6 pairs should band -200: %+v %v", res, err)
	}
}

func TestMixedGroupsRejected(t *testing.T) {
	mixed := layout(
		[]tile.Tile{tl(1, tile.Red, 13), tl(2, tile.Blue, 13), tl(3, tile.Yellow, 13)},
		[]tile.Tile{tl(4, tile.Red, 5), tl(5, tile.Red, 5)},
	)
	if _, err := EvaluateOpening(mixed, testOkey, BaseOpenThreshold, false, OpenNone, false); err == nil {
		t.Fatal("mixed pair + set must be rejected")
	}
}

func TestDoubleDeclarerOnlyPairs(t *testing.T) {
	open := layout(
		[]tile.Tile{tl(1, tile.Red, 13), tl(2, tile.Blue, 13), tl(3, tile.Yellow, 13), tl(4, tile.Black, 13)},
		[]tile.Tile{tl(5, tile.Red, 12), tl(6, tile.Blue, 12), tl(7, tile.Yellow, 12)},
	)
	if _, err := EvaluateOpening(open, testOkey, BaseOpenThreshold, false, OpenNone, true); err == nil {
		t.Fatal("double declarer must not open via run/set")
	}
}

func TestSubsequentOpening(t *testing.T) {
	one := layout([]tile.Tile{tl(1, tile.Red, 1), tl(2, tile.Red, 2), tl(3, tile.Red, 3)})
	res, err := EvaluateOpening(one, testOkey, BaseOpenThreshold, true, OpenRunSet, false)
	if err != nil {
		t.Fatalf("subsequent run group must pass without threshold: %v", err)
	}
	if res.Method != OpenRunSet {
		t.Fatalf("method must stay committed: %+v", res)
	}

	// 对子开过的不能补顺子。
	if _, err := EvaluateOpening(one, testOkey, BaseOpenThreshold, true, OpenPair, false); err == nil {
		t.Fatal("pair opener must not add run groups")
	}
}

func TestInvalidGroupRejectsWholeOpening(t *testing.T) {
	bad := layout(
		[]tile.Tile{tl(1, tile.Red, 13), tl(2, tile.Blue, 13), tl(3, tile.Yellow, 13)},
		[]tile.Tile{tl(4, tile.Red, 2), tl(5, tile.Red, 9), tl(6, tile.Red, 11)},
	)
	if _, err := EvaluateOpening(bad, testOkey, BaseOpenThreshold, false, OpenNone, false); err == nil {
		t.Fatal("one invalid group must reject the submission")
	}
}
