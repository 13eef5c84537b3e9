package retrieval

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/mvrodados/mvrodados/applog"
)

var ErrUnsupportedDocument = errors.New("tipo de archivo no soportado")

// SupportedExtensions are the file types the index can read.
var SupportedExtensions = []string{".pdf", ".txt", ".md", ".csv"}

// Document is an indexed file's extracted text.
type Document struct {
	Name    string    `json:"name"`
	Size    int       `json:"size"`
	Chars   int       `json:"chars"`
	AddedAt time.Time `json:"addedAt"`

	text string
}

// DocumentIndex keeps extracted document text in memory, keyed by file name.
type DocumentIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{docs: map[string]Document{}}
}

// LoadDir indexes every supported file directly under dir. Unreadable
// files are logged and skipped. A missing dir is not an error.
func (x *DocumentIndex) LoadDir(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read documents dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			applog.Warn("skip document", "file", e.Name(), "err", err)
			continue
		}
		if _, err := x.Add(e.Name(), data); err != nil {
			applog.Warn("skip document", "file", e.Name(), "err", err)
			continue
		}
		n++
	}
	applog.Event("retrieval", "documents indexed", "dir", dir, "count", n)
	return n, nil
}

// Add extracts and indexes data under name, replacing any previous
// document with the same name.
func (x *DocumentIndex) Add(name string, data []byte) (Document, error) {
	name = filepath.Base(name)
	text, err := extractText(name, data)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Name: name, Size: len(data), Chars: len([]rune(text)), AddedAt: time.Now(), text: text}
	x.mu.Lock()
	x.docs[name] = doc
	x.mu.Unlock()
	return doc, nil
}

// List returns the indexed documents sorted by name.
func (x *DocumentIndex) List() []Document {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Document, 0, len(x.docs))
	for _, d := range x.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether name is indexed.
func (x *DocumentIndex) Has(name string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.docs[name]
	return ok
}

// Chunks splits the named document. Unknown names yield nothing.
func (x *DocumentIndex) Chunks(name string, size int) []Chunk {
	x.mu.RLock()
	doc, ok := x.docs[name]
	x.mu.RUnlock()
	if !ok {
		return nil
	}
	return splitChunks(name, doc.text, size)
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func extractText(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return extractPDF(data)
	case ".txt", ".md", ".csv":
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Ext(name))
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return strings.Join(strings.Fields(string(b)), " "), nil
}
