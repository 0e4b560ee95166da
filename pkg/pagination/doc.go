// Package pagination implements bounds-checked paging over the Graph API.
//
// The API serves results in windows described by an offset and a limit.
// A limit must lie in [1, 100] and offset+limit may never pass 9999;
// Page enforces both bounds and computes the next valid window.
//
// Iterator turns a single-page Fetcher into a sequence of items:
//
//	it := pagination.NewIterator[graph.BasePaper](fetcher, pagination.Limit(68))
//	for {
//		paper, err := it.Next(ctx)
//		if errors.Is(err, pagination.Done) {
//			break
//		}
//		if err != nil {
//			// The page failed. Calling Next again retries it.
//			return err
//		}
//		use(paper)
//	}
//
// Stream runs the same state machine on a goroutine and delivers results
// on a channel:
//
//	s := pagination.NewStream[graph.BasePaper](ctx, fetcher, pagination.All())
//	defer s.Close()
//	for r := range s.Results() {
//		...
//	}
//
// Iteration ends without error when the server reports no next page, the
// requested Results cap is met, or the result window ceiling is reached.
// Page errors never end an iteration on their own.
//
// FanOut drains several independent iterators with a bounded worker pool.
package pagination
