package extract

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the plain text of every page in a PDF byte stream, joined
// by newlines. Encrypted documents are opened with the supplied password; a
// wrong or missing password degrades to an empty string so the document stays
// discoverable by URL instead of vanishing from the crawl. Extraction errors
// degrade the same way.
func PDFText(data []byte, name, password string, logger *slog.Logger) (text string) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pdf extraction panicked", "file", name, "panic", r)
			text = ""
		}
	}()

	attempts := 0
	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), func() string {
		attempts++
		if attempts == 1 {
			return password
		}
		return ""
	})
	if err != nil {
		logger.Error("unable to open pdf", "file", name, "error", err)
		return ""
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			logger.Error("failed to read pdf", "file", name, "page", i, "error", err)
			return ""
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n")
}
