// Package display renders session state and the history collection for a
// terminal. It owns no data; everything it shows is handed to it.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/manash/visionary/pkg/models"
)

const (
	fallbackWidth = 80
	idWidth       = 8
	ageWidth      = 16
)

type Renderer struct {
	out   io.Writer
	width int
}

func New(out io.Writer) *Renderer {
	return &Renderer{out: out, width: detectWidth(out)}
}

func detectWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallbackWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallbackWidth
	}
	return w
}

// History prints the collection newest first, one line per entry.
func (r *Renderer) History(images []models.GeneratedImage) {
	if len(images) == 0 {
		fmt.Fprintln(r.out, "No images in history yet.")
		fmt.Fprintln(r.out, "Generate some images to see them here!")
		return
	}

	promptWidth := r.width - idWidth - ageWidth - 4
	if promptWidth < 10 {
		promptWidth = 10
	}

	for _, img := range images {
		fmt.Fprintf(r.out, "%-*s  %-*s  %s\n",
			idWidth, ShortID(img.ID),
			ageWidth, humanize.Time(img.CreatedAt),
			truncate(img.Prompt, promptWidth))
	}
}

// Image prints the full record for one entry.
func (r *Renderer) Image(img *models.GeneratedImage) {
	fmt.Fprintf(r.out, "id:      %s\n", img.ID)
	fmt.Fprintf(r.out, "prompt:  %s\n", img.Prompt)
	fmt.Fprintf(r.out, "url:     %s\n", img.URL)
	fmt.Fprintf(r.out, "created: %s (%s)\n",
		img.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(img.CreatedAt))
}

// ShortID abbreviates a uuid for listing; full ids still work everywhere
// an id is accepted.
func ShortID(id string) string {
	if len(id) <= idWidth {
		return id
	}
	return id[:idWidth]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return strings.TrimRight(s[:max-3], " ") + "..."
}
