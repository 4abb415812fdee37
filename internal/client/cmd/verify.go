package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/capture"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/verify"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

type verifyClient struct {
	app          *app
	documentPath string
	selfiePath   string
	// each subcommand binds its own flag field: BoolVar writes the
	// default through the pointer at registration time, so a shared
	// field would take the last registration's default
	runWait    bool
	statusWait bool
}

func newVerifyCmd(a *app) *cobra.Command {
	c := &verifyClient{app: a}
	cmd := &cobra.Command{Use: "verify", Short: "Identity verification commands"}

	runCmd := &cobra.Command{Use: "run", Short: "Upload ID document and selfie, then poll for the outcome", RunE: c.run}
	runCmd.Flags().StringVar(&c.documentPath, "document", "", "Path to the ID document image")
	runCmd.Flags().StringVar(&c.selfiePath, "selfie", "", "Path to the selfie image")
	runCmd.Flags().BoolVar(&c.runWait, "wait", true, "Poll until the verification reaches a terminal state")
	_ = runCmd.MarkFlagRequired("document")
	_ = runCmd.MarkFlagRequired("selfie")
	cmd.AddCommand(runCmd)

	statusCmd := &cobra.Command{Use: "status", Short: "Read the current verification status", RunE: c.status}
	statusCmd.Flags().BoolVar(&c.statusWait, "wait", false, "Poll until the verification reaches a terminal state")
	cmd.AddCommand(statusCmd)

	return cmd
}

func (c *verifyClient) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	orch := verify.New(c.app.client())

	doc, err := capture.FileSource{Path: c.documentPath}.Acquire(ctx, capture.KindDocument)
	if err != nil {
		return err
	}
	extracted, err := orch.UploadDocument(ctx, doc)
	if err != nil {
		return err
	}
	printExtracted(cmd, extracted)

	selfie, err := capture.FileSource{Path: c.selfiePath}.Acquire(ctx, capture.KindSelfie)
	if err != nil {
		return err
	}
	if err := orch.UploadSelfie(ctx, selfie); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Selfie uploaded, verification processing")

	if !c.runWait {
		return nil
	}
	rec, err := c.pollUntilTerminal(ctx, orch)
	if err != nil {
		return err
	}
	printOutcome(cmd, rec, orch.IsEligibleToVote())
	return nil
}

func (c *verifyClient) status(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if !c.statusWait {
		rec, err := c.app.client().VerificationStatus(ctx)
		if err != nil {
			return err
		}
		eligible := rec.Status == models.VerificationVerified && rec.FaceMatch
		printOutcome(cmd, rec, eligible)
		return nil
	}
	// resume polling an attempt whose uploads happened in an earlier run
	rec, err := c.pollServerUntilTerminal(ctx)
	if err != nil {
		return err
	}
	printOutcome(cmd, rec, rec.Status == models.VerificationVerified && rec.FaceMatch)
	return nil
}

// pollUntilTerminal owns the polling schedule — interval plus
// cancellation — around the orchestrator's single-shot PollStatus.
func (c *verifyClient) pollUntilTerminal(ctx context.Context, orch *verify.Orchestrator) (models.VerificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.app.cfg.PollTimeout)
	defer cancel()
	ticker := time.NewTicker(c.app.cfg.PollInterval)
	defer ticker.Stop()
	for {
		rec, err := orch.PollStatus(ctx)
		if err != nil {
			return models.VerificationRecord{}, err
		}
		if rec.Status.Terminal() {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return models.VerificationRecord{}, errors.New("verification still processing, try `evoting verify status` later")
		case <-ticker.C:
		}
	}
}

func (c *verifyClient) pollServerUntilTerminal(ctx context.Context) (models.VerificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.app.cfg.PollTimeout)
	defer cancel()
	ticker := time.NewTicker(c.app.cfg.PollInterval)
	defer ticker.Stop()
	client := c.app.client()
	for {
		rec, err := client.VerificationStatus(ctx)
		if err != nil {
			return models.VerificationRecord{}, err
		}
		if rec.Status.Terminal() {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return models.VerificationRecord{}, errors.New("verification still processing, try again later")
		case <-ticker.C:
		}
	}
}

func printExtracted(cmd *cobra.Command, f models.ExtractedFields) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Document uploaded. Extracted fields:")
	fmt.Fprintf(out, "  type:   %s\n", orDash(f.DocumentType))
	fmt.Fprintf(out, "  number: %s\n", orDash(f.DocumentNumber))
	fmt.Fprintf(out, "  name:   %s\n", orDash(f.FullName))
	fmt.Fprintf(out, "  dob:    %s\n", orDash(f.DateOfBirth))
}

func printOutcome(cmd *cobra.Command, rec models.VerificationRecord, eligible bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status: %s  face match: %v\n", rec.Status, rec.FaceMatch)
	switch {
	case eligible:
		fmt.Fprintln(out, "Identity verified, you may vote")
	case rec.Status.Terminal():
		fmt.Fprintln(out, "Verification failed, restart with `evoting verify run`")
	default:
		fmt.Fprintln(out, "Verification still processing")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
