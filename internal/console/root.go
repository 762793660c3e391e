package console

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// NewRootCommand builds the shopdesk command tree.
func NewRootCommand() *cobra.Command {
	a := newApp()

	root := &cobra.Command{
		Use:   "shopdesk",
		Short: "Administer a shop from the terminal",
		Long: `shopdesk is the operator console for the shop platform: manage the
catalog, look up users and orders, report sales and chat with buyers and
sellers in real time.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file path (default is ./shopdesk.yaml or ~/.config/shopdesk/shopdesk.yaml)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRegisterCmd(a),
		newActivateCmd(a),
		newForgotPasswordCmd(a),
		newResetPasswordCmd(a),
		newBannersCmd(a),
		newBrandsCmd(a),
		newCategoriesCmd(a),
		newProductsCmd(a),
		newUsersCmd(a),
		newOrdersCmd(a),
		newTransactionsCmd(a),
		newChatCmd(a),
	)
	return root
}

// Execute runs the console with the process arguments.
func Execute(ctx context.Context) int {
	return run(ctx, NewRootCommand(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, in io.Reader, out, errOut io.Writer) int {
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}
