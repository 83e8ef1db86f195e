package request

import "slices"

// SelectPool keeps the non-broadcast requests that have a top suggestion and
// ranks them by that suggestion's votes, highest first. Requests with equal
// top votes stay in input order.
func SelectPool(requests []*Request) []*Request {
	type candidate struct {
		req   *Request
		votes int
	}

	candidates := make([]candidate, 0, len(requests))
	for _, r := range requests {
		if r == nil || r.Broadcast {
			continue
		}
		top, ok := r.TopSuggestion()
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{req: r, votes: top.Votes})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return b.votes - a.votes
	})

	pool := make([]*Request, len(candidates))
	for i, c := range candidates {
		pool[i] = c.req
	}
	return pool
}
