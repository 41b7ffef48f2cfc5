package extractor

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xhad/sowgen/internal/models"
	"github.com/xhad/sowgen/internal/types"
)

// DefaultMaxChars caps extracted text handed to the prompt.
const DefaultMaxChars = 8000

// Verify interface compliance
var _ types.Extractor = (*Extractor)(nil)

// ReaderFunc turns raw file bytes into plain text.
type ReaderFunc func(data []byte) (string, error)

type ExtractorConfig struct {
	MaxChars int
}

// Extractor dispatches on the upload's extension. Unknown extensions
// produce empty text rather than an error.
type Extractor struct {
	config  ExtractorConfig
	mu      sync.RWMutex
	readers map[string]ReaderFunc
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.MaxChars <= 0 {
		config.MaxChars = DefaultMaxChars
	}

	e := &Extractor{
		config:  config,
		readers: make(map[string]ReaderFunc),
	}
	e.Register("pdf", readPDF)
	e.Register("docx", readDOCX)
	e.Register("xlsx", readXLSX)
	e.Register("xls", readXLS)
	e.Register("pptx", readPPTX)

	return e
}

func New() *Extractor {
	return NewWithConfig(ExtractorConfig{})
}

// Register adds or replaces the reader for an extension.
func (e *Extractor) Register(ext string, fn ReaderFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.readers[normalizeExt(ext)] = fn
}

// Supported returns the registered extensions in sorted order.
func (e *Extractor) Supported() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	exts := make([]string, 0, len(e.readers))
	for ext := range e.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (e *Extractor) Extract(upload models.Upload) (string, error) {
	ext := upload.Extension
	if ext == "" {
		ext = filepath.Ext(upload.Name)
	}
	ext = normalizeExt(ext)

	e.mu.RLock()
	read, ok := e.readers[ext]
	e.mu.RUnlock()
	if !ok {
		return "", nil
	}

	text, err := read(upload.Data)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s text from %q: %w", ext, upload.Name, err)
	}

	return Truncate(text, e.config.MaxChars), nil
}

// Truncate keeps at most n characters (runes) of s.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// ExtensionOf returns the normalized extension of a file name.
func ExtensionOf(name string) string {
	return normalizeExt(filepath.Ext(name))
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
