package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title StudyVault API
// @version 1.0.0
// @description Upload, organise and share PDF study notes.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var rootCmd = &cobra.Command{
	Use:           "study-vault-api",
	Short:         "StudyVault note sharing backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
