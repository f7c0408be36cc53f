package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/fixflow"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSearchResults(w io.Writer, query string, hits []fixflow.SearchResult) {
	if len(hits) == 0 {
		fmt.Fprintf(w, "No issues match %q. Try different keywords.\n", query)
		return
	}
	for _, h := range hits {
		fmt.Fprintf(w, "%3d%%  %s  [%s]\n", h.Percent(), h.Title, h.ID)
		if len(h.Tags) > 0 {
			fmt.Fprintf(w, "      %s\n", hashTags(h.Tags))
		}
	}
}

func printIssue(w io.Writer, issue fixflow.Issue) {
	fmt.Fprintf(w, "%s  [%s]\n", issue.Title, issue.ID)
	if len(issue.Tags) > 0 {
		fmt.Fprintln(w, hashTags(issue.Tags))
	}
	fmt.Fprintf(w, "views: %d  useful: %d", issue.ViewCount, issue.UsefulCount)
	if !issue.CreatedAt.IsZero() {
		fmt.Fprintf(w, "  created: %s", issue.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprint(w, "\n\nProblem:\n")
	fmt.Fprintln(w, issue.Content)
	fmt.Fprint(w, "\nSolution:\n")
	fmt.Fprintln(w, issue.Solution)
}

func printTrending(w io.Writer, issues []fixflow.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "No trending issues yet.")
		return
	}
	for i, issue := range issues {
		fmt.Fprintf(w, "%2d. %s  [%s]\n    useful: %d  views: %d\n",
			i+1, issue.Title, issue.ID, issue.UsefulCount, issue.ViewCount)
	}
}

func hashTags(tags []string) string {
	var b strings.Builder
	for i, t := range tags {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('#')
		b.WriteString(t)
	}
	return b.String()
}
