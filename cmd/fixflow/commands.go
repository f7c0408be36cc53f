package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fixflow"
	logpkg "github.com/kailas-cloud/fixflow/internal/logger"
)

func (a *app) createCmd() *cobra.Command {
	var (
		title, content, solution, tags string
		meta                           map[string]string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new issue with its solution",
		Example: `  fixflow create --title "pip fails behind proxy" \
    --content "pip install hangs on corporate network" \
    --solution "export HTTPS_PROXY before running pip" \
    --tags "python, pip, proxy"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metadata := map[string]any{"source": "cli"}
			for k, v := range meta {
				metadata[k] = v
			}
			created, err := a.client.CreateIssue(cmd.Context(),
				fixflow.NewIssueCreate(title, content, solution, tags, metadata))
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created issue %s: %s\n", created.ID, created.Title)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "short problem summary (required)")
	f.StringVar(&content, "content", "", "problem description (required)")
	f.StringVar(&solution, "solution", "", "how it was fixed (required)")
	f.StringVar(&tags, "tags", "", "comma-separated tags")
	f.StringToStringVar(&meta, "meta", nil, "extra metadata as key=value, repeatable")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search issues in natural language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			hits, err := a.client.SearchIssues(cmd.Context(), query)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), hits)
			}
			printSearchResults(cmd.OutOrStdout(), query, hits)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	var view bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an issue and its solution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			issue, err := a.client.GetIssue(ctx, args[0])
			if err != nil {
				return err
			}
			if view {
				// A lost view only skews the counters; still show the issue.
				if err := a.client.SendFeedback(ctx, issue.ID, fixflow.FeedbackView); err != nil {
					logpkg.FromContext(ctx).Warn("Failed to record view",
						zap.String("issue_id", issue.ID), zap.Error(err))
				} else {
					issue.ApplyFeedback(fixflow.FeedbackView)
				}
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), issue)
			}
			printIssue(cmd.OutOrStdout(), issue)
			return nil
		},
	}
	cmd.Flags().BoolVar(&view, "view", false, "record a view for the issue")
	return cmd
}

func (a *app) trendingCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "List the most useful and most viewed issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues, err := a.client.GetTrending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), issues)
			}
			printTrending(cmd.OutOrStdout(), issues)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of issues (default from api.trending_limit)")
	return cmd
}

func (a *app) feedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "feedback <id> view|useful",
		Short:     "Record a view or mark an issue as useful",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(fixflow.FeedbackView), string(fixflow.FeedbackUseful)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, kind := args[0], fixflow.FeedbackKind(args[1])
			if !kind.Valid() {
				return fmt.Errorf("%w: %q (want view or useful)", fixflow.ErrInvalidFeedbackKind, args[1])
			}
			if err := a.client.SendFeedback(cmd.Context(), id, kind); err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"id": id, "type": string(kind)})
			}
			out := cmd.OutOrStdout()
			if kind == fixflow.FeedbackUseful {
				fmt.Fprintln(out, "Thanks for your feedback!")
			} else {
				fmt.Fprintf(out, "Recorded view for %s.\n", id)
			}
			return nil
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.client.Health(cmd.Context())
			if err != nil {
				if errors.Is(err, fixflow.ErrTimeout) {
					return fmt.Errorf("%s did not answer: %w", a.client.BaseURL(), err)
				}
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status.Status, status.Message)
			return nil
		},
	}
}
