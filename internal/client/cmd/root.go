package cmd

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/api"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/config"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/session"
)

// app bundles the settings and lazily-built collaborators the
// subcommands share. Flags override config values because cobra parses
// them before RunE fires.
type app struct {
	cfg config.Config
}

func (a *app) sessions() *session.Store {
	return session.NewStore(a.cfg.SessionPath)
}

func (a *app) client() *api.Client {
	return api.New(a.cfg.ServerURL, a.sessions(), &http.Client{Timeout: a.cfg.HTTPTimeout})
}

func NewRootCmd(version, buildDate string, cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg}
	root := &cobra.Command{
		Use:   "evoting",
		Short: "Identity-verified electronic voting client",
	}
	root.PersistentFlags().StringVar(&a.cfg.ServerURL, "server", cfg.ServerURL, "Backend base URL")
	root.PersistentFlags().StringVar(&a.cfg.SessionPath, "session-file", cfg.SessionPath, "Session credential file")

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newAuthCmd(a))
	root.AddCommand(newVerifyCmd(a))
	root.AddCommand(newVoteCmd(a))
	root.AddCommand(newResultsCmd(a))
	return root
}
