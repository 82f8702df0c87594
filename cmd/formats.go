package cmd

import (
	"fmt"
	"strings"

	"deepfilter-media/domain/media"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported input file extensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunFormats(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

// RunFormats prints the accepted extensions per kind
func RunFormats(out OutputWriter) error {
	fmt.Fprintf(out, "Audio: %s\n", strings.Join(media.SupportedExtensions(media.KindAudio), " "))
	fmt.Fprintf(out, "Video: %s\n", strings.Join(media.SupportedExtensions(media.KindVideo), " "))
	return nil
}
