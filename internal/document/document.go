// Package document defines the typeset-document collaborator interface: a
// sink accepting flow items (paragraphs, spacers, page breaks, images) with
// style attributes, and a console-rendering implementation usable for
// debugging and for driving the core without pulling in a real layout
// library.
package document

// Alignment is a paragraph's horizontal alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
)

// Margins are page margins, in the document's chosen unit (points, by
// convention, matching typeset-library expectations).
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Style is the current paragraph style: font, size, color, alignment,
// indentation, background, and spacing. Every Document implementation
// tracks a "current style" that WriteParagraph uses until SetStyle changes
// it again.
type Style struct {
	FontName  string
	FontSize  float64
	Color     string
	Alignment Alignment

	LeftIndent  float64
	RightIndent float64

	BackgroundColor   string
	BackgroundPadding float64

	Leading                float64
	SpaceBetweenParagraphs float64
}

// Document is the core's view of an external typeset-document generator.
// Implementations translate these calls into whatever the underlying
// layout library needs; the core has no further expectations beyond
// well-formed calls in a sensible order (Open before anything else, Build
// last).
type Document interface {
	// Open begins a new document of the given page size and margins, with
	// an initial style.
	Open(filename string, pageWidth, pageHeight float64, margins Margins, initial Style) error

	// SetStyle updates the style used by subsequent WriteParagraph calls.
	SetStyle(s Style)

	// WriteParagraph appends text as one or more paragraphs: a newline
	// starts a new paragraph, and a run of two adjacent spaces is
	// preserved as a non-breaking pair rather than collapsed.
	WriteParagraph(text string) error

	// InsertSpace appends a vertical spacer of the given height.
	InsertSpace(height float64)

	// InsertPageBreak starts a new page.
	InsertPageBreak()

	// InsertImage appends an image, proportionally scaled to width if
	// width is non-zero.
	InsertImage(filename string, width float64) error

	// InsertTitlePage appends a title page bearing title.
	InsertTitlePage(title string) error

	// Build finalizes and emits the document. When pageNumbers is true,
	// every page but the first is numbered.
	Build(pageNumbers bool) error
}
