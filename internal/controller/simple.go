package controller

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "debugir.dev/pkg/debugir/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var cfg StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.mode == ModeWatch {
		s.printf("Watching %d file(s) for changes (Ctrl+C to stop)\n", cfg.files)
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayFileReport prints a one-line summary of a processed file.
func (s *SimpleUI) DisplayFileReport(ctx context.Context, report m.FileReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s -> %s (%d subprograms, %d lexical blocks, %d locations)\n",
		report.Input, report.DebugOutput, report.Subprograms, report.LexicalBlocks, report.Locations)
}

// DisplayFileError prints a failure for one input.
func (s *SimpleUI) DisplayFileError(ctx context.Context, path m.Path, err error) {
	if ctx.Err() != nil {
		return
	}

	s.printf("error: %s: %v\n", path, err)
}

// DisplayRunSummary prints a table with one row per processed file.
func (s *SimpleUI) DisplayRunSummary(ctx context.Context, reports []m.FileReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderRunTable(reports))

	return nil
}

func renderRunTable(reports []m.FileReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Functions", "Blocks", "Instructions", "Locations", "Debug module"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT,
	})

	var functions, blocks, instructions, locations int

	for _, r := range reports {
		debugOutput := string(r.DebugOutput)
		if r.Verified {
			debugOutput += " (verified)"
		}

		table.Append([]string{
			string(r.Input),
			fmt.Sprintf("%d/%d", r.Shape.Definitions, r.Shape.Functions),
			fmt.Sprintf("%d", r.Shape.Blocks),
			fmt.Sprintf("%d", r.Shape.Instructions),
			fmt.Sprintf("%d", r.Locations),
			debugOutput,
		})

		functions += r.Shape.Functions
		blocks += r.Shape.Blocks
		instructions += r.Shape.Instructions
		locations += r.Locations
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(reports)),
		fmt.Sprintf("%d", functions),
		fmt.Sprintf("%d", blocks),
		fmt.Sprintf("%d", instructions),
		fmt.Sprintf("%d", locations),
		"",
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayLineTable prints a line table as a table or as yaml.
func (s *SimpleUI) DisplayLineTable(ctx context.Context, table *m.LineTable, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(table)
		if err != nil {
			return fmt.Errorf("failed to encode line table: %w", err)
		}

		s.printf("%s", out)
	case FormatTable, "":
		s.printf("%s", renderLineTable(table))
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatTable, FormatYAML)
	}

	return nil
}

// lineRow is one entity start in a line table.
type lineRow struct {
	line   int
	kind   string
	entity string
}

func lineRows(table *m.LineTable) []lineRow {
	var rows []lineRow

	for _, fn := range table.Functions {
		if !fn.Defined {
			rows = append(rows, lineRow{line: fn.Header, kind: "declare", entity: "@" + fn.Name})
			continue
		}

		rows = append(rows, lineRow{line: fn.Header, kind: "define", entity: "@" + fn.Name})

		for j, bb := range fn.Blocks {
			label := blockName(bb, j)

			if bb.Label != "" {
				rows = append(rows, lineRow{line: bb.Line, kind: "block", entity: "@" + fn.Name + ":" + label})
			}

			for k, line := range bb.Instructions {
				rows = append(rows, lineRow{
					line:   line,
					kind:   "instruction",
					entity: fmt.Sprintf("@%s:%s#%d", fn.Name, label, k),
				})
			}
		}

		rows = append(rows, lineRow{line: fn.End, kind: "end", entity: "@" + fn.Name})
	}

	return rows
}

func blockName(bb m.BlockLines, index int) string {
	if bb.Label != "" {
		return bb.Label
	}

	return fmt.Sprintf("<%d>", index)
}

func renderLineTable(lt *m.LineTable) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Line", "Kind", "Entity"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, row := range lineRows(lt) {
		table.Append([]string{fmt.Sprintf("%d", row.line), row.kind, row.entity})
	}

	table.SetFooter([]string{
		filepath.Base(lt.File),
		fmt.Sprintf("%d functions", len(lt.Functions)),
		fmt.Sprintf("%d instructions", lt.InstructionCount()),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayCheckResults prints whether display and debug files are canonical,
// followed by the diff of every file that is not.
func (s *SimpleUI) DisplayCheckResults(ctx context.Context, results []m.CheckResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Display", "Debug module"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, r := range results {
		table.Append([]string{string(r.Input), r.Display.String(), r.Debug.String()})
	}

	table.Render()
	s.printf("%s", tableBuffer.String())

	for _, r := range results {
		for _, diff := range []string{r.DisplayDiff, r.DebugDiff} {
			if diff != "" {
				s.printf("\n%s", ensureNewline(diff))
			}
		}
	}

	return nil
}

// DisplayListing prints the display text with the entity starting on each line.
func (s *SimpleUI) DisplayListing(ctx context.Context, listing m.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderListing(listing, 0))

	return nil
}

func renderListing(listing m.Listing, scopeWidth int) string {
	if scopeWidth == 0 {
		for _, line := range listing.Lines {
			scopeWidth = max(scopeWidth, len(line.Scope))
		}
	}

	digits := len(fmt.Sprintf("%d", len(listing.Lines)))

	var b strings.Builder

	for _, line := range listing.Lines {
		fmt.Fprintf(&b, "%*d %-*s | %s\n", digits, line.Number, scopeWidth, line.Scope, line.Text)
	}

	return b.String()
}

// DisplayWatchEvent prints the files that changed.
func (s *SimpleUI) DisplayWatchEvent(ctx context.Context, paths []m.Path) {
	if ctx.Err() != nil {
		return
	}

	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, string(p))
	}

	s.printf("changed: %s\n", strings.Join(names, ", "))
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}

	return s + "\n"
}
