// Package cli implements the debugctl commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/telhawk-systems/debugconsole/internal/client"
	"github.com/telhawk-systems/debugconsole/internal/output"
)

const defaultServer = "http://localhost:8090"

// app carries state shared by all subcommands of one root command.
type app struct {
	v *viper.Viper
}

func (a *app) client() *client.Client {
	return client.New(a.v.GetString("server"), a.v.GetString("token"))
}

func (a *app) format() string {
	return a.v.GetString("output")
}

// NewRootCmd builds the debugctl command tree. Flags fall back to
// DEBUGCTL_SERVER, DEBUGCTL_TOKEN and DEBUGCTL_OUTPUT.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "debugctl",
		Short: "Admin debug console CLI",
		Long: `debugctl records and inspects admin debug console events.

Point it at a debug console server with --server (or DEBUGCTL_SERVER) and
authenticate with a bearer token via --token (or DEBUGCTL_TOKEN).`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return output.ValidateFormat(a.format())
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", defaultServer, "debug console base URL")
	flags.String("token", "", "bearer token")
	flags.StringP("output", "o", output.FormatTable, "output format: table, json, yaml")

	for _, name := range []string{"server", "token", "output"} {
		if err := a.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
	a.v.SetEnvPrefix("DEBUGCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newRecordCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newPruneCmd(a),
	)
	return root
}
