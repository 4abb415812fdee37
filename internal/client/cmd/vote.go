package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/voting"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

type voteClient struct {
	app             *app
	listElectionID  int64
	castElectionID  int64
	castCandidateID int64
}

func newVoteCmd(a *app) *cobra.Command {
	c := &voteClient{app: a}
	cmd := &cobra.Command{Use: "vote", Short: "Election and voting commands"}

	cmd.AddCommand(&cobra.Command{Use: "elections", Short: "List elections", RunE: c.elections})

	candidatesCmd := &cobra.Command{Use: "candidates", Short: "List candidates for an election", RunE: c.candidates}
	candidatesCmd.Flags().Int64Var(&c.listElectionID, "election", 0, "Election id")
	_ = candidatesCmd.MarkFlagRequired("election")
	cmd.AddCommand(candidatesCmd)

	castCmd := &cobra.Command{Use: "cast", Short: "Cast a vote", RunE: c.cast}
	castCmd.Flags().Int64Var(&c.castElectionID, "election", 0, "Election id")
	castCmd.Flags().Int64Var(&c.castCandidateID, "candidate", 0, "Candidate id")
	_ = castCmd.MarkFlagRequired("election")
	_ = castCmd.MarkFlagRequired("candidate")
	cmd.AddCommand(castCmd)

	return cmd
}

func (c *voteClient) elections(cmd *cobra.Command, args []string) error {
	elections, err := c.app.client().ListElections(cmd.Context())
	if err != nil {
		return err
	}
	if len(elections) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No elections available")
		return nil
	}
	for _, e := range elections {
		fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  (%s to %s)\n",
			e.ID, e.Name, e.StartDate.Format("2006-01-02"), e.EndDate.Format("2006-01-02"))
	}
	return nil
}

func (c *voteClient) candidates(cmd *cobra.Command, args []string) error {
	candidates, err := c.app.client().ListCandidates(cmd.Context(), c.listElectionID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No candidates registered")
		return nil
	}
	for _, cand := range candidates {
		party := cand.PartyName
		if party == "" {
			party = "Independent"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  (%s)\n", cand.ID, cand.UserName, party)
	}
	return nil
}

func (c *voteClient) cast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := c.app.client()

	// each CLI run is a fresh process, so eligibility comes from the
	// server's verification record rather than a live orchestrator
	rec, err := client.VerificationStatus(ctx)
	if err != nil {
		return err
	}
	eligible := rec.Status == models.VerificationVerified && rec.FaceMatch
	orch := voting.New(client, voting.GateFunc(func() bool { return eligible }), c.app.sessions())

	elections, err := orch.ListElections(ctx)
	if err != nil {
		return err
	}
	var election *models.Election
	for i := range elections {
		if elections[i].ID == c.castElectionID {
			election = &elections[i]
			break
		}
	}
	if election == nil {
		return fmt.Errorf("election %d not found", c.castElectionID)
	}
	orch.SelectElection(*election)

	candidates, err := orch.ListCandidates(ctx, election.ID)
	if err != nil {
		return err
	}
	var candidate *models.Candidate
	for i := range candidates {
		if candidates[i].ID == c.castCandidateID {
			candidate = &candidates[i]
			break
		}
	}
	if candidate == nil {
		return fmt.Errorf("candidate %d not found in election %d", c.castCandidateID, election.ID)
	}
	if err := orch.SelectCandidate(*candidate); err != nil {
		return err
	}

	vote, err := orch.CastVote(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Vote cast for %s in %s (vote id %d)\n",
		candidate.UserName, election.Name, vote.ID)
	return nil
}
