package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func conversationCommand() *cli.Command {
	return &cli.Command{
		Name:  "conversation",
		Usage: "Inspect stored conversations",
		Commands: []*cli.Command{
			conversationListCommand(),
			conversationSearchCommand(),
		},
	}
}

func conversationListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "list",
		Usage:     "List conversations of a user, newest first",
		ArgsUsage: "<user-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			userID := model.UserID(c.Args().First())
			if userID == "" {
				return goerr.New("user-id argument is required")
			}

			st, err := cfg.newStores(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			summaries, err := st.conversations.GetAll(ctx, userID)
			if err != nil {
				return err
			}

			return printJSON(summaries)
		},
	}
}

func conversationSearchCommand() *cli.Command {
	var cfg config
	var limit int64

	flags := append(globalFlags(&cfg), providerFlags(&cfg)...)
	flags = append(flags, &cli.IntFlag{
		Name:        "limit",
		Aliases:     []string{"n"},
		Usage:       "Maximum number of results",
		Value:       10,
		Destination: &limit,
	})

	return &cli.Command{
		Name:      "search",
		Usage:     "Search conversations semantically close to a query",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
			}

			st, err := cfg.newStores(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			embedding, err := adapter.NewGeminiEmbedder(gemini).Embed(ctx, query)
			if err != nil {
				return goerr.Wrap(err, "failed to embed query")
			}

			results, err := st.conversations.SearchSimilar(ctx, embedding, int(limit))
			if err != nil {
				return err
			}

			summaries := make([]*model.ConversationSummary, 0, len(results))
			for _, conv := range results {
				summaries = append(summaries, conv.Summary())
			}
			return printJSON(summaries)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to encode output")
	}
	return nil
}
