package connector

// crawlState holds the frontier and visited set for one crawl. It is owned
// exclusively by the connector loop; no other goroutine touches it.
type crawlState struct {
	frontier []string
	visited  map[string]struct{}
}

func newCrawlState(seeds []string) *crawlState {
	state := &crawlState{
		frontier: make([]string, 0, len(seeds)),
		visited:  make(map[string]struct{}),
	}
	state.frontier = append(state.frontier, seeds...)
	return state
}

// pop removes and returns the most recently added URL (depth-first order).
func (s *crawlState) pop() (string, bool) {
	if len(s.frontier) == 0 {
		return "", false
	}
	last := len(s.frontier) - 1
	u := s.frontier[last]
	s.frontier = s.frontier[:last]
	return u, true
}

func (s *crawlState) push(u string) {
	s.frontier = append(s.frontier, u)
}

func (s *crawlState) seen(u string) bool {
	_, ok := s.visited[u]
	return ok
}

// markVisited records a URL as dispatched. The visited set only grows.
func (s *crawlState) markVisited(u string) {
	s.visited[u] = struct{}{}
}
