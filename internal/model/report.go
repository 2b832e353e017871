package model

// Synthesis is the output of one synthesis run.
type Synthesis struct {
	// Display is the debug-free module whose rendering is DisplayText.
	Display     *Module
	DisplayText string
	// Debug is the augmented module; DebugText is its rendering.
	Debug     *Module
	DebugText string
	Lines     *LineTable
}

// FileReport summarizes what was produced for one input file.
type FileReport struct {
	Input         Path
	DebugOutput   Path
	LineMap       Path
	Shape         ModuleShape
	Subprograms   int
	LexicalBlocks int
	Locations     int
	Renamed       int
	Verified      bool
}

// CheckStatus represents the outcome of comparing files on disk with a fresh rendering.
type CheckStatus int

const (
	// InSync indicates the file matches the canonical rendering.
	InSync CheckStatus = iota
	// OutOfSync indicates the file differs from the canonical rendering.
	OutOfSync
	// Missing indicates the file does not exist.
	Missing
)

// String implements fmt.Stringer.
func (s CheckStatus) String() string {
	switch s {
	case InSync:
		return "in sync"
	case OutOfSync:
		return "out of sync"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// CheckResult holds the check outcome for one input and its debug module.
type CheckResult struct {
	Input       Path
	Display     CheckStatus
	DisplayDiff string
	Debug       CheckStatus
	DebugDiff   string
}

// Listing is the display text annotated with the entity starting on each line.
type Listing struct {
	Path  Path
	Lines []ListingLine
}

// ListingLine is one physical line of a Listing.
type ListingLine struct {
	Number int
	Text   string
	Scope  string
}
