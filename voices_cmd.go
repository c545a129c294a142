package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/storyvox/storyvox/pipeline/voices"
)

var voiceNameStyle = lipgloss.NewStyle().Bold(true).Width(10)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available voice profiles",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		for _, v := range voices.Catalog() {
			fmt.Printf("%s %-8s %-8s %4.0f Hz, %d wpm\n",
				voiceNameStyle.Render(v.ID),
				v.Name, v.Gender, v.BaseHz, v.WordsMin)
		}
	},
}
