// Command tonekeys plays and renders the synthesized keyboard.
package main

import "github.com/spf13/cobra"

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
