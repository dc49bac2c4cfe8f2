package cmd

import (
	"fmt"

	"github.com/nfrund/homeplace/cmd/homeplace-cli/internal/format"
	"github.com/nfrund/homeplace/internal/config"
	"github.com/nfrund/homeplace/internal/prefs"
	"github.com/spf13/cobra"
)

func openPrefs(cmd *cobra.Command) (*prefs.Store, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		path = cfg.GetPrefsPath()
	}
	return prefs.NewOSStore(path), nil
}

func newPrefsCmd() *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read and change local preferences",
		Long: `Preferences are kept in a JSON file (PREFS_PATH, or --file).

Keys:
  language  BCP 47 tag, e.g. en or pt-BR
  theme     light, dark or system`,
	}
	prefsCmd.PersistentFlags().String("file", "", "Preferences file (defaults to PREFS_PATH)")

	prefsCmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openPrefs(cmd)
				if err != nil {
					return err
				}
				v, err := store.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one preference",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openPrefs(cmd)
				if err != nil {
					return err
				}
				return store.Set(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print every preference",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openPrefs(cmd)
				if err != nil {
					return err
				}
				all, err := store.All()
				if err != nil {
					return err
				}
				return format.KeyValues(cmd.OutOrStdout(), prefs.Keys(), all, outputFormat(cmd))
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Print preferences whenever the file changes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openPrefs(cmd)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				err = store.Watch(cmd.Context(), func(p prefs.Prefs) {
					fmt.Fprintf(out, "language=%s theme=%s\n", p.Language, p.Theme)
				})
				if err != nil {
					return err
				}
				<-cmd.Context().Done()
				return nil
			},
		},
	)
	return prefsCmd
}
