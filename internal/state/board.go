package state

// Board is the ordered stroke list a peer renders. Later strokes paint over
// earlier ones. A Board is owned by a single goroutine and does no locking.
type Board struct {
	strokes []*Stroke
	byID    map[string]*Stroke
	limit   int // 0 means unbounded
}

// NewBoard returns an empty board that keeps at most limit strokes,
// dropping the oldest first.
func NewBoard(limit int) *Board {
	if limit < 0 {
		limit = 0
	}
	return &Board{
		byID:  make(map[string]*Stroke),
		limit: limit,
	}
}

func (b *Board) Len() int { return len(b.strokes) }

// Get returns the live stroke for id. Callers may append to its points.
func (b *Board) Get(id string) (*Stroke, bool) {
	s, ok := b.byID[id]
	return s, ok
}

func (b *Board) Has(id string) bool {
	_, ok := b.byID[id]
	return ok
}

// Add appends s, replacing nothing. If a stroke with the same id exists it
// is returned unchanged.
func (b *Board) Add(s Stroke) *Stroke {
	if cur, ok := b.byID[s.ID]; ok {
		return cur
	}
	st := s.Clone()
	b.strokes = append(b.strokes, &st)
	b.byID[st.ID] = &st
	b.trim()
	return &st
}

// Upsert returns the stroke for id, creating an empty one with style when
// it is not on the board yet. created reports which happened.
func (b *Board) Upsert(id string, style Style) (s *Stroke, created bool) {
	if cur, ok := b.byID[id]; ok {
		return cur, false
	}
	return b.Add(Stroke{ID: id, Style: style, Points: []Point{}}), true
}

// Remove deletes the stroke with id and reports whether it existed.
func (b *Board) Remove(id string) bool {
	if _, ok := b.byID[id]; !ok {
		return false
	}
	delete(b.byID, id)
	for i, s := range b.strokes {
		if s.ID == id {
			b.strokes = append(b.strokes[:i], b.strokes[i+1:]...)
			break
		}
	}
	return true
}

// Pop removes the last stroke.
func (b *Board) Pop() (Stroke, bool) {
	if len(b.strokes) == 0 {
		return Stroke{}, false
	}
	last := b.strokes[len(b.strokes)-1]
	b.strokes = b.strokes[:len(b.strokes)-1]
	delete(b.byID, last.ID)
	return *last, true
}

func (b *Board) Clear() {
	b.strokes = nil
	b.byID = make(map[string]*Stroke)
}

// Replace swaps the whole board for strokes. Duplicate ids keep the first
// occurrence.
func (b *Board) Replace(strokes []Stroke) {
	b.Clear()
	for _, s := range strokes {
		b.Add(s)
	}
}

// Strokes returns a deep copy in paint order.
func (b *Board) Strokes() []Stroke {
	out := make([]Stroke, 0, len(b.strokes))
	for _, s := range b.strokes {
		out = append(out, s.Clone())
	}
	return out
}

// Each visits strokes in paint order without copying.
func (b *Board) Each(fn func(s *Stroke)) {
	for _, s := range b.strokes {
		fn(s)
	}
}

func (b *Board) trim() {
	if b.limit == 0 {
		return
	}
	for len(b.strokes) > b.limit {
		delete(b.byID, b.strokes[0].ID)
		b.strokes = b.strokes[1:]
	}
}
