package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/dekarrin/rosed"
)

// defaultWrapWidth matches the console output width the driver's
// interactive surfaces wrap to elsewhere in storyforge.
const defaultWrapWidth = 80

// ConsoleDocument is a Document that renders flow items as wrapped plain
// text to an io.Writer, for use in tests and for authors who want to read a
// draft before it is worth spending a real layout pass on.
type ConsoleDocument struct {
	w         io.Writer
	wrapWidth int
	style     Style
	pageCount int
	opened    bool
}

// NewConsoleDocument returns a ConsoleDocument writing to w, wrapping
// paragraphs at wrapWidth columns. A wrapWidth of 0 uses defaultWrapWidth.
func NewConsoleDocument(w io.Writer, wrapWidth int) *ConsoleDocument {
	if wrapWidth <= 0 {
		wrapWidth = defaultWrapWidth
	}
	return &ConsoleDocument{w: w, wrapWidth: wrapWidth}
}

func (c *ConsoleDocument) Open(filename string, pageWidth, pageHeight float64, margins Margins, initial Style) error {
	c.style = initial
	c.pageCount = 1
	c.opened = true
	fmt.Fprintf(c.w, "=== %s ===\n", filename)
	return nil
}

func (c *ConsoleDocument) SetStyle(s Style) {
	c.style = s
}

func (c *ConsoleDocument) WriteParagraph(text string) error {
	if !c.opened {
		return fmt.Errorf("document not open")
	}
	for _, para := range strings.Split(text, "\n") {
		wrapped := rosed.Edit(para).Wrap(c.wrapWidth).String()
		fmt.Fprintln(c.w, wrapped)
	}
	return nil
}

func (c *ConsoleDocument) InsertSpace(height float64) {
	fmt.Fprintln(c.w)
}

func (c *ConsoleDocument) InsertPageBreak() {
	c.pageCount++
	fmt.Fprintf(c.w, "\n----- page %d -----\n\n", c.pageCount)
}

func (c *ConsoleDocument) InsertImage(filename string, width float64) error {
	fmt.Fprintf(c.w, "[image: %s]\n", filename)
	return nil
}

func (c *ConsoleDocument) InsertTitlePage(title string) error {
	wrapped := rosed.Edit(title).Wrap(c.wrapWidth).String()
	fmt.Fprintf(c.w, "%s\n", wrapped)
	c.InsertPageBreak()
	return nil
}

func (c *ConsoleDocument) Build(pageNumbers bool) error {
	if !pageNumbers {
		return nil
	}
	fmt.Fprintf(c.w, "\n(%d pages)\n", c.pageCount)
	return nil
}
