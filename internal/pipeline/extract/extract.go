package extract

import (
	"path/filepath"
	"strings"

	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("extract")

// DetectFileType maps a filename extension onto the closed set of supported
// document types. Anything else is ERR and gets rejected at upload.
func DetectFileType(filename string) docModel.FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return docModel.PDF
	case ".docx", ".txt", ".rtf", ".odt":
		return docModel.DOCX
	case ".tex":
		return docModel.TEX
	default:
		return docModel.ERR
	}
}

// Extract returns the full plain text of the file at path. The dispatch is a
// closed switch over the tagged file type; failures come back as
// *docModel.ExtractionError so callers can mark the document failed without
// retrying.
func Extract(path string, fileType docModel.FileType) (string, error) {
	switch fileType {
	case docModel.PDF:
		return extractPDF(path)
	case docModel.DOCX:
		return extractDocxTxtRtf(path)
	case docModel.TEX:
		return extractTex(path)
	default:
		return "", &docModel.ExtractionError{
			FileType: fileType,
			Err:      docModel.ErrUnsupportedFileType,
		}
	}
}
