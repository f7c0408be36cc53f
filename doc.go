// Package fixflow provides a Go client for the FixFlow knowledge-base API:
// problem/solution records ("issues"), natural-language search over them,
// a trending feed and view/useful feedback counters.
//
// Ranking, persistence and counters all live in the backend; this package
// only speaks its HTTP API.
//
//	client, _ := fixflow.New(
//	    fixflow.WithBaseURL("http://localhost:8000/api/v1"),
//	    fixflow.WithTimeout(5*time.Second),
//	)
//	issue, _ := client.CreateIssue(ctx, fixflow.NewIssueCreate(
//	    "Timeout Error", "Request timed out after 30s", "Increase timeout to 60s",
//	    "network, timeout", map[string]any{"env": "prod"},
//	))
//	hits, _ := client.SearchIssues(ctx, "request time out")
//	_ = client.SendFeedback(ctx, hits[0].ID, fixflow.FeedbackUseful)
//
// # Timeouts
//
// Every request runs under its own deadline (WithTimeout, 10s by default).
// When it fires the call fails with a *TimeoutError ("request timed out after
// Nms"), matched by errors.Is(err, ErrTimeout). Other transport errors are
// returned unchanged. Non-2xx responses fail with a *StatusError carrying the
// operation's fixed message; there are no retries.
package fixflow
