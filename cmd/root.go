// Package cmd contains the chatscribe CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatscribe",
	Short: "Chatscribe - chat with your documents",
	Long: `Chatscribe is a document-chat service: upload PDF, DOCX, or TXT
files and ask questions about them. Answers are grounded in the document
text via vector retrieval and a language model, with graceful fallback to
a local model or a rule-based responder.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
