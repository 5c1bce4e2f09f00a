package memory

func (s *CartStore) Len() int {
	n := 0
	s.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
