package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siongang/study-agent/core"
)

func TestPlainText_Extract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("page one\f page two\fpage three"), 0o644))

	file := &core.SourceFile{FileID: "f1", Path: "doc.txt", Filename: "doc.txt"}
	got, err := NewPlainText().Extract(context.Background(), file, path)
	require.NoError(t, err)

	assert.Equal(t, 3, got.NumPages)
	assert.Equal(t, "page one", got.Pages[0])
	assert.Equal(t, "page one", got.FirstPage)
	assert.Contains(t, got.FullText, "page three")
	assert.False(t, got.ExtractedAt.IsZero())
}

func TestPlainText_SinglePage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("just one page\n"), 0o644))

	got, err := NewPlainText().Extract(context.Background(), &core.SourceFile{FileID: "f1"}, path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumPages)
	assert.Equal(t, "just one page", got.Pages[0])
}

func TestPlainText_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewPlainText().Extract(context.Background(), &core.SourceFile{FileID: "f1", Filename: "empty.txt"}, path)
	assert.True(t, errors.Is(err, core.ErrEmptyText))
}

func TestStore_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "extracted_text"))

	text := &core.ExtractedText{
		FileID:    "f1",
		Path:      "doc.txt",
		NumPages:  2,
		Pages:     []string{"a", "b"},
		FullText:  "a\n\nb",
		FirstPage: "a",
	}
	require.NoError(t, store.Save(text))
	assert.True(t, store.Exists("f1"))

	loaded, err := store.Load("f1")
	require.NoError(t, err)
	assert.Equal(t, text.Pages, loaded.Pages)
	assert.Equal(t, text.FullText, loaded.FullText)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("nope")
	assert.True(t, errors.Is(err, ErrNotExtracted))
	assert.False(t, store.Exists("nope"))
}

func TestDetectTOCPages(t *testing.T) {
	toc := "Table of Contents\n1. Intro ........ 1\n2. Processes .... 30\n3. Memory ....... 61"
	cont := "4. Scheduling ... 90\n5. Filesystems .. 110\n6. Networking ... 130"
	body := "Chapter 1\n\nIn the beginning there was the process."

	text := &core.ExtractedText{
		FileID:   "f1",
		NumPages: 4,
		Pages:    []string{"Cover page", toc, cont, body},
	}

	pages, tocText := DetectTOCPages(text)
	assert.Equal(t, []int{2, 3}, pages)
	assert.Contains(t, tocText, "Scheduling")
	assert.NotContains(t, tocText, "in the beginning")
}

func TestDetectTOCPages_NoTOC(t *testing.T) {
	text := &core.ExtractedText{
		FileID:   "f1",
		NumPages: 2,
		Pages:    []string{"plain page", "another plain page"},
	}

	pages, tocText := DetectTOCPages(text)
	assert.Nil(t, pages)
	assert.Empty(t, tocText)
}

func TestDetectTOCPages_ScanWindow(t *testing.T) {
	// A TOC past the scan window is not detected.
	pages := make([]string, 40)
	for i := range pages {
		pages[i] = "filler"
	}
	pages[35] = "Table of Contents\n1. Late ... 1"

	text := &core.ExtractedText{FileID: "f1", NumPages: 40, Pages: pages}
	got, _ := DetectTOCPages(text)
	assert.Nil(t, got)

	// Inside the window it is.
	pages[10] = "Contents\n1. Intro ... 1"
	got, _ = DetectTOCPages(text)
	assert.Equal(t, []int{11}, got)
}
