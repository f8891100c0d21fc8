package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// DevicePickerModel - Interactive device selection
// =============================================================================

// DevicePickerModel is the bubbletea model for interactive device selection.
type DevicePickerModel struct {
	Devices  []device.Profile
	Cursor   int
	Selected *device.Profile
	Height   int
	Offset   int
}

// NewDevicePickerModel creates a new device picker over profiles.
func NewDevicePickerModel(profiles []device.Profile) DevicePickerModel {
	return DevicePickerModel{
		Devices: profiles,
		Height:  15,
	}
}

func (m DevicePickerModel) Init() tea.Cmd {
	return nil
}

func (m DevicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Devices)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Devices) == 0 {
				return m, tea.Quit
			}
			p := m.Devices[m.Cursor]
			m.Selected = &p
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m DevicePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Device"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Devices))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, append([]string{cursor}, deviceRow(m.Devices[i])...))
	}

	t := deviceTable(rows, append([]string{""}, deviceHeaders...)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Devices))))

	return b.String()
}

// pickDevice runs the picker and returns the chosen profile, or nil when the
// user quit without choosing.
func pickDevice(profiles []device.Profile) (*device.Profile, error) {
	final, err := tea.NewProgram(NewDevicePickerModel(profiles)).Run()
	if err != nil {
		return nil, fmt.Errorf("device picker: %w", err)
	}
	return final.(DevicePickerModel).Selected, nil
}

// =============================================================================
// Device Table
// =============================================================================

var (
	deviceHeaders    = []string{"ID", "Name", "Resolution", "Grays", "Panel view", "Formats"}
	tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

func deviceTable(rows [][]string, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...)
}

// deviceRow renders one profile as table cells.
func deviceRow(p device.Profile) []string {
	grays := "any"
	if len(p.Palette) > 0 {
		grays = strconv.Itoa(len(p.Palette))
	}
	panelView := ""
	if p.PanelView {
		panelView = iconSuccess
	}
	return []string{p.ID, p.Name, p.Resolution(), grays, panelView, joinFormats(p.Formats)}
}

func joinFormats(formats []comic.Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
