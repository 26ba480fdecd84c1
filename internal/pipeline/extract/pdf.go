package extract

import (
	"errors"
	"strings"
	"time"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/dslipak/pdf"
)

func extractPDF(path string) (string, error) {
	f, err := pdf.Open(path)
	if err != nil {
		logger.Error("failed opening pdf file", "path", path, "error", err.Error())
		return "", &docModel.ExtractionError{FileType: docModel.PDF, Err: err}
	}

	var text strings.Builder
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// Log warning but continue with other pages
			logger.Error("Error parsing page content", "page", i, "Error", err)
			continue
		}

		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(content)
	}
	return text.String(), nil
}

// The pdf library can hang on malformed pages, so each page extraction runs
// behind a timeout.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(config.PageExtractTimeout):
		logger.Error("pageExtract", "timeout", config.PageExtractTimeout)
		return "", errors.New("timeout")
	}
}
