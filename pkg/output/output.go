package output

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Writer persists composed slides as PNG files under an explicit output
// root. The root is plain configuration; there is no package-level state.
type Writer struct {
	Root      string // Folder to write slides under
	Overwrite bool   // Regenerate the slide even if it already exists
}

// NewWriter creates a Writer rooted at the given folder.
func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// SlidePath returns the output path for the given HTML document:
// <root>/<stem>_slides/<stem>_slide.png, where stem is the document
// filename without its extension.
func (w *Writer) SlidePath(htmlPath string) string {
	stem := strings.TrimSuffix(filepath.Base(htmlPath), filepath.Ext(htmlPath))
	return filepath.Join(w.Root, stem+"_slides", stem+"_slide.png")
}

// Save encodes the slide as PNG and writes it to the path derived from
// htmlPath. When the file already exists and Overwrite is false the write
// is skipped; skipped reports which of the two happened.
func (w *Writer) Save(img image.Image, htmlPath string) (filename string, skipped bool, err error) {
	filename = w.SlidePath(htmlPath)

	if !w.Overwrite {
		if _, err := os.Stat(filename); err == nil {
			return filename, true, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(filename), os.ModePerm); err != nil {
		return "", false, fmt.Errorf("error creating output folder: %w", err)
	}

	if err := imaging.Save(img, filename); err != nil {
		return "", false, fmt.Errorf("error saving slide: %w", err)
	}

	return filename, false, nil
}
