package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/api"
)

type resultsClient struct{ app *app }

func newResultsCmd(a *app) *cobra.Command {
	c := &resultsClient{app: a}
	return &cobra.Command{
		Use:   "results <election-id>",
		Short: "Show the aggregate tally for an election",
		Args:  cobra.ExactArgs(1),
		RunE:  c.show,
	}
}

func (c *resultsClient) show(cmd *cobra.Command, args []string) error {
	electionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid election id %q", args[0])
	}
	res, err := c.app.client().VotingResults(cmd.Context(), electionID)
	if errors.Is(err, api.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No results for this election yet")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n  winner: %s\n  total votes: %d\n",
		res.ElectionName, res.Winner, res.TotalVotes)
	return nil
}
