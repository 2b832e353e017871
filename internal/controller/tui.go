package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "debugir.dev/pkg/debugir/internal/model"
)

// Fixed rows taken by the viewer's header and footer.
const chromeHeight = 2

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	scopeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI for terminals. Listings open in a scrollable viewer;
// everything else is printed like SimpleUI does.
type TUI struct {
	*SimpleUI
	output io.Writer
}

// NewTUI creates a new TUI writing to the command's output.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{
		SimpleUI: NewSimpleUI(cmd),
		output:   cmd.OutOrStdout(),
	}
}

// DisplayListing shows the listing in a pager when it does not fit the terminal.
func (t *TUI) DisplayListing(ctx context.Context, listing m.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newListingModel(listing)

	if f, ok := t.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model = model.resize(width, height)
		}
	}

	if !model.needsPagination() {
		_, err := fmt.Fprint(t.output, renderListing(listing, 0))
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// listingModel is the Bubble Tea model of the display text viewer.
type listingModel struct {
	listing  m.Listing
	viewport viewport.Model
	ready    bool
	quitting bool
}

func newListingModel(listing m.Listing) listingModel {
	return listingModel{listing: listing}
}

func (lm listingModel) resize(width, height int) listingModel {
	bodyHeight := max(height-chromeHeight, 1)

	if !lm.ready {
		lm.viewport = viewport.New(width, bodyHeight)
		lm.viewport.SetContent(lm.content())
		lm.ready = true

		return lm
	}

	lm.viewport.Width = width
	lm.viewport.Height = bodyHeight

	return lm
}

func (lm listingModel) needsPagination() bool {
	if !lm.ready {
		return false
	}

	return len(lm.listing.Lines) > lm.viewport.Height
}

// content renders every line with its number and the scope starting there.
func (lm listingModel) content() string {
	width := 0
	for _, line := range lm.listing.Lines {
		width = max(width, len(line.Scope))
	}

	digits := len(fmt.Sprintf("%d", len(lm.listing.Lines)))

	var b strings.Builder

	for i, line := range lm.listing.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(gutterStyle.Render(fmt.Sprintf("%*d", digits, line.Number)))
		b.WriteByte(' ')
		b.WriteString(scopeStyle.Render(fmt.Sprintf("%-*s", width, line.Scope)))
		b.WriteString(gutterStyle.Render(" │ "))
		b.WriteString(line.Text)
	}

	return b.String()
}

func (lm listingModel) Init() tea.Cmd {
	return nil
}

func (lm listingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return lm.resize(msg.Width, msg.Height), nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			lm.quitting = true
			return lm, tea.Quit
		}
	}

	var cmd tea.Cmd

	lm.viewport, cmd = lm.viewport.Update(msg)

	return lm, cmd
}

func (lm listingModel) View() string {
	if lm.quitting || !lm.ready {
		return ""
	}

	header := headerStyle.Render(string(lm.listing.Path))
	footer := footerStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll  q quit", lm.viewport.ScrollPercent()*100))

	return header + "\n" + lm.viewport.View() + "\n" + footer
}
