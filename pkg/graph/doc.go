// Package graph binds the Semantic Scholar Graph API v1: endpoint paths,
// field selection, query parameters and response types.
//
// Every endpoint constructor is pure and returns a reusable wrapper.
// Single-value endpoints are performed with Query or QueryAsync. List
// endpoints additionally expose Paged, a blocking iterator, and Stream,
// a channel-based producer. Both walk the result window with the
// pagination engine on a private copy of the parameters.
//
// Usage:
//
//	c, _ := client.New(client.DefaultConfig("MyApp/1.0 (me@example.org)"))
//
//	params, err := graph.NewPaperSearchParams("graph neural networks",
//		pagination.DefaultPage(), graph.FieldTitle, graph.FieldYear)
//	if err != nil {
//		return err
//	}
//
//	it := graph.GetPaperSearch(params).Paged(c, pagination.Limit(250))
//	for paper, err := range it.All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(paper.Title)
//	}
package graph
