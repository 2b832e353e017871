package domain

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"debugir.dev/pkg/debugir/internal/adapter"
	"debugir.dev/pkg/debugir/internal/controller"
	m "debugir.dev/pkg/debugir/internal/model"
)

// recursiveSuffix marks a directory argument that is scanned recursively.
const recursiveSuffix = "/..."

// irExtension is the extension of textual IR inputs.
const irExtension = ".ll"

// SynthesisArgs holds the settings shared by every command that synthesizes.
type SynthesisArgs struct {
	InstNamer   bool
	DebugSuffix string
	AbsoluteDir bool
	Options     Options
}

// RunArgs contains the arguments of the run command.
type RunArgs struct {
	SynthesisArgs
	Paths    []m.Path
	Parallel int
	Verify   bool
	LineMap  bool
}

// LinesArgs contains the arguments of the lines command.
type LinesArgs struct {
	SynthesisArgs
	Path   m.Path
	Format string
}

// CheckArgs contains the arguments of the check command.
type CheckArgs struct {
	SynthesisArgs
	Paths    []m.Path
	Parallel int
}

// ViewArgs contains the arguments of the view command.
type ViewArgs struct {
	SynthesisArgs
	Path m.Path
}

// WatchArgs contains the arguments of the watch command.
type WatchArgs struct {
	RunArgs
	Debounce time.Duration
}

// ErrOutOfSync is returned by Check when a file on disk is not canonical.
var ErrOutOfSync = errors.New("files out of sync")

// Workflow wires the synthesis pipeline to files on disk and to the UI.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) ([]m.FileReport, error)
	Lines(ctx context.Context, args LinesArgs) error
	Check(ctx context.Context, args CheckArgs) ([]m.CheckResult, error)
	View(ctx context.Context, args ViewArgs) error
	Watch(ctx context.Context, args WatchArgs) error
}

type workflow struct {
	adapter.IRFileAdapter
	adapter.SourceFSAdapter
	adapter.LineMapStore
	adapter.ModuleVerifier
	controller.UI
	watcher adapter.FileWatcher
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	parser adapter.IRFileAdapter,
	fsAdapter adapter.SourceFSAdapter,
	lineMapStore adapter.LineMapStore,
	verifier adapter.ModuleVerifier,
	watcher adapter.FileWatcher,
	ui controller.UI,
) Workflow {
	return &workflow{
		IRFileAdapter:   parser,
		SourceFSAdapter: fsAdapter,
		LineMapStore:    lineMapStore,
		ModuleVerifier:  verifier,
		UI:              ui,
		watcher:         watcher,
	}
}

// Run synthesizes every input: the display text replaces the input and the
// augmented module is written next to it.
func (w *workflow) Run(ctx context.Context, args RunArgs) ([]m.FileReport, error) {
	paths, err := w.resolvePaths(args.Paths, args.DebugSuffix)
	if err != nil {
		return nil, err
	}

	if err := w.Start(ctx, controller.WithRunMode(len(paths))); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return nil, err
	}
	defer w.Close(ctx)

	reports, err := w.runAll(ctx, args, paths)
	if err != nil {
		return nil, err
	}

	if err := w.DisplayRunSummary(ctx, reports); err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}

	return reports, nil
}

func (w *workflow) runAll(ctx context.Context, args RunArgs, paths []m.Path) ([]m.FileReport, error) {
	reports := make([]m.FileReport, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(args.Parallel, 1))

	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			report, err := w.runFile(groupCtx, args, path)
			if err != nil {
				slog.Error("Failed to synthesize debug info", "path", path, "error", err)
				w.DisplayFileError(ctx, path, err)

				return fmt.Errorf("%s: %w", path, err)
			}

			reports[i] = report
			w.DisplayFileReport(ctx, report)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

func (w *workflow) runFile(ctx context.Context, args RunArgs, path m.Path) (m.FileReport, error) {
	report := m.FileReport{Input: path, DebugOutput: m.DebugPath(path, args.DebugSuffix)}

	info, err := w.FileInfo(path)
	if err != nil {
		return report, fmt.Errorf("stat input: %w", err)
	}

	syn, renamed, err := w.synthesizeFile(ctx, args.SynthesisArgs, path)
	if err != nil {
		return report, err
	}

	report.Shape = syn.Display.Shape()
	report.Subprograms, report.LexicalBlocks, report.Locations = CountScopes(syn.Debug)
	report.Renamed = renamed

	if args.Verify {
		verified, err := w.verify(report, syn)
		if err != nil {
			return report, err
		}

		report.Verified = verified
	}

	if err := w.WriteFile(path, []byte(syn.DisplayText), info.Mode().Perm()); err != nil {
		return report, fmt.Errorf("write display text: %w", err)
	}

	if err := w.WriteFile(report.DebugOutput, []byte(syn.DebugText), info.Mode().Perm()); err != nil {
		return report, fmt.Errorf("write debug module: %w", err)
	}

	if args.LineMap {
		report.LineMap = m.LineMapPath(path)
		if err := w.SaveLineMap(report.LineMap, syn.Lines, hashText(syn.DisplayText)); err != nil {
			return report, fmt.Errorf("save line map: %w", err)
		}
	}

	slog.Info("Synthesized debug info", "path", path, "debug", report.DebugOutput,
		"subprograms", report.Subprograms, "locations", report.Locations)

	return report, nil
}

// synthesizeFile reads, parses, optionally names and synthesizes one input.
func (w *workflow) synthesizeFile(ctx context.Context, args SynthesisArgs, path m.Path) (*m.Synthesis, int, error) {
	mod, renamed, err := w.loadModule(args, path)
	if err != nil {
		return nil, 0, err
	}

	dir, file, err := m.DisplayLocation(path, args.AbsoluteDir)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve display location: %w", err)
	}

	syn, err := NewSynthesizer(w.IRFileAdapter, args.Options).Synthesize(ctx, mod, dir, file)
	if err != nil {
		return nil, 0, err
	}

	return syn, renamed, nil
}

func (w *workflow) loadModule(args SynthesisArgs, path m.Path) (*m.Module, int, error) {
	src, err := w.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read input: %w", err)
	}

	mod, err := w.Parse(string(path), src)
	if err != nil {
		return nil, 0, err
	}

	if !args.InstNamer {
		return mod, 0, nil
	}

	named, result := NameValues(mod)
	if result.Skipped != "" {
		slog.Warn("Skipping value naming", "path", path, "reason", result.Skipped)
	}

	return named, result.Renamed, nil
}

// verify re-reads the debug module with an independent parser and compares
// the structure it sees with the synthesized one. Modules using syntax the
// parser does not know are reported unverified rather than failed.
func (w *workflow) verify(report m.FileReport, syn *m.Synthesis) (bool, error) {
	result, err := w.Verify(string(report.DebugOutput), syn.DebugText)
	if errors.Is(err, adapter.ErrUnsupportedSyntax) {
		slog.Warn("Skipping verification", "path", report.DebugOutput, "error", err)
		return false, nil
	}

	if err != nil {
		return false, err
	}

	want := syn.Debug.Shape()
	if result.Shape != want {
		return false, &adapter.VerifyError{
			Path: string(report.DebugOutput),
			Err:  fmt.Errorf("shape %+v, synthesized %+v", result.Shape, want),
		}
	}

	if result.DebugLocations != report.Locations {
		return false, &adapter.VerifyError{
			Path: string(report.DebugOutput),
			Err:  fmt.Errorf("%d instructions carry !dbg, synthesized %d", result.DebugLocations, report.Locations),
		}
	}

	return true, nil
}

// Lines displays the line table of a module's display rendering, or the
// table stored in a line map sidecar.
func (w *workflow) Lines(ctx context.Context, args LinesArgs) error {
	table, err := w.lineTable(args)
	if err != nil {
		slog.Error("Failed to build line table", "path", args.Path, "error", err)
		return err
	}

	return w.DisplayLineTable(ctx, table, args.Format)
}

func (w *workflow) lineTable(args LinesArgs) (*m.LineTable, error) {
	if strings.HasSuffix(string(args.Path), m.LineMapSuffix) {
		lineMap, err := w.LoadLineMap(args.Path)
		if err != nil {
			return nil, err
		}

		w.warnIfStale(args.Path, lineMap)

		return lineMap.Table, nil
	}

	mod, _, err := w.loadModule(args.SynthesisArgs, args.Path)
	if err != nil {
		return nil, err
	}

	_, table, err := NewSynthesizer(w.IRFileAdapter, args.Options).Display(mod)
	if err != nil {
		return nil, err
	}

	table.File = filepath.Base(string(args.Path))

	return table, nil
}

// warnIfStale logs when the display text next to a sidecar changed since
// the sidecar was written.
func (w *workflow) warnIfStale(sidecar m.Path, lineMap *m.LineMap) {
	display := m.Path(strings.TrimSuffix(string(sidecar), m.LineMapSuffix) + irExtension)

	hash, err := w.HashFile(display)
	if err != nil {
		slog.Debug("Display text for line map not found", "path", display, "error", err)
		return
	}

	if hash != lineMap.DisplayHash {
		slog.Warn("Line map is older than its display text", "line_map", sidecar, "display", display)
	}
}

// Check reports whether every input is the canonical display text and its
// debug module matches a fresh synthesis. It returns ErrOutOfSync when any
// file differs.
func (w *workflow) Check(ctx context.Context, args CheckArgs) ([]m.CheckResult, error) {
	paths, err := w.resolvePaths(args.Paths, args.DebugSuffix)
	if err != nil {
		return nil, err
	}

	if err := w.Start(ctx, controller.WithCheckMode(len(paths))); err != nil {
		return nil, err
	}
	defer w.Close(ctx)

	results := make([]m.CheckResult, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(args.Parallel, 1))

	for i, path := range paths {
		group.Go(func() error {
			result, err := w.checkFile(groupCtx, args.SynthesisArgs, path)
			if err != nil {
				slog.Error("Failed to check file", "path", path, "error", err)
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	if err := w.DisplayCheckResults(ctx, results); err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}

	for _, r := range results {
		if r.Display != m.InSync || r.Debug != m.InSync {
			return results, ErrOutOfSync
		}
	}

	return results, nil
}

func (w *workflow) checkFile(ctx context.Context, args SynthesisArgs, path m.Path) (m.CheckResult, error) {
	result := m.CheckResult{Input: path}

	src, err := w.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("read input: %w", err)
	}

	syn, _, err := w.synthesizeFile(ctx, args, path)
	if err != nil {
		return result, err
	}

	result.Display, result.DisplayDiff = compareText(string(path), string(src), syn.DisplayText)

	debugPath := m.DebugPath(path, args.DebugSuffix)

	debugSrc, err := w.ReadFile(debugPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		result.Debug = m.Missing
	case err != nil:
		return result, fmt.Errorf("read debug module: %w", err)
	default:
		result.Debug, result.DebugDiff = compareText(string(debugPath), string(debugSrc), syn.DebugText)
	}

	return result, nil
}

func compareText(name, onDisk, canonical string) (m.CheckStatus, string) {
	if onDisk == canonical {
		return m.InSync, ""
	}

	return m.OutOfSync, UnifiedDiff(name, name+" (canonical)", onDisk, canonical)
}

// View shows the display rendering of a module with the entity starting on
// each line.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	mod, _, err := w.loadModule(args.SynthesisArgs, args.Path)
	if err != nil {
		return err
	}

	text, table, err := NewSynthesizer(w.IRFileAdapter, args.Options).Display(mod)
	if err != nil {
		slog.Error("Failed to render display text", "path", args.Path, "error", err)
		return err
	}

	return w.DisplayListing(ctx, BuildListing(args.Path, text, table))
}

// BuildListing pairs every line of text with the annotation of the entity
// that starts on it.
func BuildListing(path m.Path, text string, table *m.LineTable) m.Listing {
	annotations := table.Annotations()
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	listing := m.Listing{Path: path, Lines: make([]m.ListingLine, 0, len(lines))}
	for i, line := range lines {
		listing.Lines = append(listing.Lines, m.ListingLine{
			Number: i + 1,
			Text:   line,
			Scope:  annotations[i+1],
		})
	}

	return listing
}

// Watch runs once and then again for every input that changes, until ctx
// is done. Its own writes are recognised by content hash and ignored.
func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	paths, err := w.resolvePaths(args.Paths, args.DebugSuffix)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithWatchMode(len(paths))); err != nil {
		return err
	}
	defer w.Close(ctx)

	written := newHashSet()

	w.runWatched(ctx, args.RunArgs, paths, written)

	return w.watcher.Watch(ctx, paths, args.Debounce, func(changed []m.Path) {
		var stale []m.Path

		for _, p := range changed {
			hash, err := w.HashFile(p)
			if err != nil || written.matches(p, hash) {
				continue
			}

			stale = append(stale, p)
		}

		if len(stale) == 0 {
			return
		}

		w.DisplayWatchEvent(ctx, stale)
		w.runWatched(ctx, args.RunArgs, stale, written)
	})
}

// runWatched synthesizes paths one by one, reporting failures without
// stopping, and remembers the hash of every display text it wrote.
func (w *workflow) runWatched(ctx context.Context, args RunArgs, paths []m.Path, written *hashSet) {
	for _, path := range paths {
		report, err := w.runFile(ctx, args, path)
		if err != nil {
			slog.Error("Failed to synthesize debug info", "path", path, "error", err)
			w.DisplayFileError(ctx, path, err)

			continue
		}

		if hash, err := w.HashFile(path); err == nil {
			written.set(path, hash)
		}

		w.DisplayFileReport(ctx, report)
	}
}

// resolvePaths expands directory arguments into the IR files they contain.
// A trailing "/..." scans recursively. Debug modules are never inputs.
func (w *workflow) resolvePaths(args []m.Path, debugSuffix string) ([]m.Path, error) {
	if len(args) == 0 {
		return nil, errors.New("no input files")
	}

	if debugSuffix == "" {
		debugSuffix = m.DefaultDebugSuffix
	}

	seen := make(map[m.Path]bool)

	var paths []m.Path

	add := func(p m.Path) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		root := string(arg)
		recursive := strings.HasSuffix(root, recursiveSuffix)

		if recursive {
			root = strings.TrimSuffix(root, recursiveSuffix)
			if root == "" {
				root = "."
			}
		}

		info, err := w.FileInfo(m.Path(root))
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}

		if !info.IsDir() {
			add(m.Path(root))
			continue
		}

		var found []m.Path

		err = w.Walk(m.Path(root), recursive, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if fi.IsDir() || filepath.Ext(path) != irExtension || strings.HasSuffix(path, debugSuffix) {
				return nil
			}

			found = append(found, m.Path(path))

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}

		sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })

		for _, p := range found {
			add(p)
		}
	}

	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}

	return paths, nil
}

func hashText(text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}
