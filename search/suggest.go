package search

// suggestions collects distinct strings in insertion order, up to a limit.
type suggestions struct {
	limit int
	seen  map[string]bool
	out   []string
}

func newSuggestions(limit int) *suggestions {
	if limit <= 0 {
		limit = 10
	}
	return &suggestions{limit: limit, seen: map[string]bool{}, out: []string{}}
}

func (s *suggestions) add(v string) {
	if v == "" || s.seen[v] || len(s.out) >= s.limit {
		return
	}
	s.seen[v] = true
	s.out = append(s.out, v)
}

func (s *suggestions) list() []string {
	return s.out
}
