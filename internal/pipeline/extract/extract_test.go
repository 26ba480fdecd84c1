package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		filename string
		want     docModel.FileType
	}{
		{"paper.pdf", docModel.PDF},
		{"Paper.PDF", docModel.PDF},
		{"notes.docx", docModel.DOCX},
		{"notes.txt", docModel.DOCX},
		{"notes.rtf", docModel.DOCX},
		{"thesis.tex", docModel.TEX},
		{"archive.zip", docModel.ERR},
		{"noextension", docModel.ERR},
	}
	for _, tt := range tests {
		if got := DetectFileType(tt.filename); got != tt.want {
			t.Errorf("DetectFileType(%q) = %q; want %q", tt.filename, got, tt.want)
		}
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	_, err := Extract("whatever.bin", docModel.ERR)
	var extractionErr *docModel.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtract_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello transcription world"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := Extract(path, docModel.DOCX)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(text, "hello transcription world") {
		t.Errorf("extracted text missing content: %q", text)
	}
}

func TestExtract_MissingFileIsExtractionError(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "nope.txt"), docModel.DOCX)
	var extractionErr *docModel.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestStripTex(t *testing.T) {
	src := `\documentclass{article}
\usepackage[utf8]{inputenc}
% a comment that must vanish
\begin{document}
\section{Introduction}
Hello \textbf{bold} world. See \ref{fig:one} for 100\% coverage.
\end{document}`

	got := stripTex(src)

	if strings.Contains(got, "documentclass") || strings.Contains(got, "article") {
		t.Errorf("preamble leaked into output: %q", got)
	}
	if strings.Contains(got, "comment that must vanish") {
		t.Errorf("comment leaked into output: %q", got)
	}
	if !strings.Contains(got, "Introduction") {
		t.Errorf("section title lost: %q", got)
	}
	if !strings.Contains(got, "Hello bold world") {
		t.Errorf("body text mangled: %q", got)
	}
	if !strings.Contains(got, "100% coverage") {
		t.Errorf("escaped percent lost: %q", got)
	}
	if strings.Contains(got, "fig:one") {
		t.Errorf("ref label leaked: %q", got)
	}
}

func TestStripTex_Deterministic(t *testing.T) {
	src := `\section{Results}\nNumbers: $x = 1$ and more text.`
	if stripTex(src) != stripTex(src) {
		t.Error("stripTex not deterministic")
	}
}
