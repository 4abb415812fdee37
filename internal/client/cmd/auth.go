package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/auth"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

type authClient struct {
	app   *app
	phone string
	otp   string
	form  models.RegistrationForm
}

func newAuthCmd(a *app) *cobra.Command {
	c := &authClient{app: a}
	cmd := &cobra.Command{Use: "auth", Short: "Authentication commands"}

	requestCmd := &cobra.Command{Use: "request-otp", Short: "Request an OTP over SMS", RunE: c.requestOTP}
	requestCmd.Flags().StringVar(&c.phone, "phone", "", "Phone number")
	cmd.AddCommand(requestCmd)

	loginCmd := &cobra.Command{Use: "login", Short: "Verify OTP and store the session credential", RunE: c.login}
	loginCmd.Flags().StringVar(&c.phone, "phone", "", "Phone number")
	loginCmd.Flags().StringVar(&c.otp, "otp", "", "OTP code (prompted when omitted)")
	cmd.AddCommand(loginCmd)

	cmd.AddCommand(&cobra.Command{Use: "logout", Short: "Destroy the stored session credential", RunE: c.logout})
	cmd.AddCommand(&cobra.Command{Use: "whoami", Short: "Show the authenticated user", RunE: c.whoami})

	registerCmd := &cobra.Command{Use: "register", Short: "Create a voter account", RunE: c.register}
	registerCmd.Flags().StringVar(&c.form.Username, "username", "", "Username")
	registerCmd.Flags().StringVar(&c.form.Email, "email", "", "Email")
	registerCmd.Flags().StringVar(&c.form.PhoneNumber, "phone", "", "Phone number")
	registerCmd.Flags().StringVar(&c.form.VoterID, "voter-id", "", "Voter ID")
	registerCmd.Flags().StringVar(&c.form.AdhaarNumber, "adhaar", "", "Adhaar number")
	registerCmd.Flags().StringVar(&c.form.Address, "address", "", "Postal address")
	registerCmd.Flags().StringVar(&c.form.WalletAddress, "wallet-address", "", "Wallet address (random placeholder when omitted)")
	cmd.AddCommand(registerCmd)

	return cmd
}

func (c *authClient) requestOTP(cmd *cobra.Command, args []string) error {
	flow := auth.New(c.app.client(), c.app.sessions())
	echo, err := flow.RequestOTP(cmd.Context(), c.phone)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OTP sent over SMS")
	if echo != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Dev OTP echo: %s\n", echo)
	}
	return nil
}

func (c *authClient) login(cmd *cobra.Command, args []string) error {
	flow := auth.New(c.app.client(), c.app.sessions())
	// each CLI run is a fresh process; the OTP was requested by a
	// previous run, so restore OTP-entry state without a new request
	if err := flow.ResumePending(c.phone); err != nil {
		return err
	}
	otp := c.otp
	if otp == "" {
		var err error
		otp, err = promptSecret(cmd, "OTP: ")
		if err != nil {
			return err
		}
	}
	if err := flow.VerifyOTPAndLogin(cmd.Context(), otp); err != nil {
		return err
	}
	user, err := flow.FetchAuthenticatedUser(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.PhoneNumber)
	return nil
}

func (c *authClient) logout(cmd *cobra.Command, args []string) error {
	flow := auth.New(c.app.client(), c.app.sessions())
	if err := flow.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func (c *authClient) whoami(cmd *cobra.Command, args []string) error {
	user, err := c.app.client().FetchAuthenticatedUser(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  phone=%s  verified=%v  voted=%v\n",
		user.Username, user.PhoneNumber, user.IsVerified, user.AlreadyVoted)
	return nil
}

func (c *authClient) register(cmd *cobra.Command, args []string) error {
	form := c.form
	if form.WalletAddress == "" {
		addr, err := placeholderWalletAddress()
		if err != nil {
			return err
		}
		form.WalletAddress = addr
	}
	user, err := c.app.client().Register(cmd.Context(), form)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, login with auth request-otp --phone %s\n",
		user.Username, user.PhoneNumber)
	return nil
}

// placeholderWalletAddress fabricates an address-shaped value for the
// registration form. Real key generation is the wallet's concern, not
// this client's.
func placeholderWalletAddress() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	return string(b), err
}
