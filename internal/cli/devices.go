package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/comicpress/pkg/device"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// devicesCommand lists the device catalogue.
func (c *CLI) devicesCommand() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List supported devices",
		Long: `List the built-in device profiles and those declared in the config file.

With --pick an interactive list is shown and the chosen id is printed, so it
can be used in scripts: comicpress convert ./Series -d "$(comicpress devices --pick)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := c.devices.All()
			if !pick {
				c.renderDevices(profiles)
				return nil
			}
			if !interactive() {
				return errors.New(errors.ErrCodeInvalidInput, "--pick needs an interactive terminal")
			}
			p, err := pickDevice(profiles)
			if err != nil {
				return err
			}
			if p == nil {
				return errors.New(errors.ErrCodeInvalidInput, "no device selected")
			}
			fmt.Fprintln(c.Out, p.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "choose a device interactively and print its id")
	return cmd
}

// renderDevices prints profiles as a table followed by a usage hint.
func (c *CLI) renderDevices(profiles []device.Profile) {
	rows := make([][]string, len(profiles))
	for i, p := range profiles {
		rows[i] = deviceRow(p)
	}
	t := deviceTable(rows, deviceHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return tableHeaderStyle
			case col == 0:
				return StyleHighlight
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	fmt.Fprintln(c.Out, t.Render())
	fmt.Fprintln(c.Out)
	printNextStep(c.Out, "Convert for a device", "comicpress convert <dir> -d <id>")
}
