package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/grabnode/internal/inventory"
)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate [inventory-file]",
		Short: "Validate a camera inventory file",
		Long: `Parses the camera inventory and checks ids, serials, geometry, acquisition modes ` +
			`and subscription viewports without touching any device.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path := inventory.DefaultPath
			if len(args) == 1 {
				path = args[0]
			}
			out := c.OutOrStdout()
			if quiet {
				out = io.Discard
			}
			if err := runValidate(path, out); err != nil {
				fmt.Fprintln(c.ErrOrStderr(), err)
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report errors")
	return cmd
}

func runValidate(path string, out io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("inventory %s: %w", path, err)
	}

	cams, err := inventory.ReadFile(path)
	if err != nil {
		return err
	}
	if err := inventory.Validate(cams); err != nil {
		return fmt.Errorf("inventory %s is invalid:\n%w", path, err)
	}

	fmt.Fprintf(out, "%s: %d camera(s)\n", path, len(cams))
	for _, c := range cams {
		mode, _ := c.AcquisitionMode()
		fmt.Fprintf(out, "  [%d] %s %s mode=%s subscriptions=%d\n", c.ID, c.Model, c.Serial, mode, len(c.Subscriptions))
		for _, s := range c.Subscriptions {
			vp, _ := s.ViewportOrDefault()
			fmt.Fprintf(out, "      %s %v autostart=%t\n", s.Name, vp.Values(), s.Autostart)
		}
	}
	return nil
}
