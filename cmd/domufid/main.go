package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/splashxmoon/domufi-app/internal/cli"
	"github.com/splashxmoon/domufi-app/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "domufid",
		Short: "Domufi conversational AI daemon",
		Long:  "Domufi daemon for running the conversational API server and managing the learning loops",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.SelfTestCmd())
	rootCmd.AddCommand(admin.LearnCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
