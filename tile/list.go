package tile

type List []Tile

// IDs 提取 id 列表，保持原顺序。
func (l List) IDs() []int {
	out := make([]int, 0, len(l))
	for _, t := range l {
		out = append(out, t.ID)
	}
	return out
}

// Find 按 id 查找，返回下标，找不到返回 -1。
func (l List) Find(id int) int {
	for i, t := range l {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Remove 按 id 移除一张牌，返回剩余列表、被移除的牌和是否命中。
// 不命中时原样返回。
func (l List) Remove(id int) (List, Tile, bool) {
	i := l.Find(id)
	if i < 0 {
		return l, Tile{}, false
	}
	removed := l[i]
	out := make(List, 0, len(l)-1)
	out = append(out, l[:i]...)
	out = append(out, l[i+1:]...)
	return out, removed, true
}

// Clone 深拷贝。
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}
