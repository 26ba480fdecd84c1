package extract

import (
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/lu4p/cat"
)

// extractDocxTxtRtf reads a .docx, .odt, .rtf or plaintext file and returns
// the content as a single string.
func extractDocxTxtRtf(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Error extracting content from doc", "path", path, "error", err.Error())
		return "", &docModel.ExtractionError{FileType: docModel.DOCX, Err: err}
	}
	return text, nil
}
