package cli

import (
	"context"
	"fmt"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func profileCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "profile",
		Usage:     "Show the generated profile of a user",
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

			p, err := st.profiles.Get(ctx, userID)
			if err != nil {
				if model.IsNotFound(err) {
					fmt.Printf("no profile generated yet for %s\n", userID)
					return nil
				}
				return err
			}

			return printJSON(p)
		},
	}
}
