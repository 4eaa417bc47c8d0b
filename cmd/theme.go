package cmd

import (
	"fmt"

	"github.com/shouni/gemini-fanout-kit/internal/config"
	"github.com/shouni/gemini-fanout-kit/pkg/preference"

	"github.com/spf13/cobra"
)

// themeCmd はギャラリーの表示テーマ（light / dark）を管理します。
var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "ギャラリーの表示テーマを表示・変更します。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := themeStore()
		if err != nil {
			return err
		}
		theme, err := store.Theme()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme)
		return nil
	},
}

var themeSetCmd = &cobra.Command{
	Use:   "set <light|dark>",
	Short: "テーマを保存します。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		theme, err := preference.ParseTheme(args[0])
		if err != nil {
			return err
		}
		store, err := themeStore()
		if err != nil {
			return err
		}
		if err := store.SetTheme(theme); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme)
		return nil
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "light と dark を切り替えます。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := themeStore()
		if err != nil {
			return err
		}
		theme, err := store.Toggle()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme)
		return nil
	},
}

func init() {
	themeCmd.AddCommand(themeSetCmd, themeToggleCmd)
}

func themeStore() (*preference.Store, error) {
	return preference.NewStore(config.LoadConfig().ThemeFile)
}
