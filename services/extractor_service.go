package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

func init() {

	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	err := license.SetMeteredKey(os.Getenv("UNIDOC_LICENSE_KEY"))
	if err != nil {
		fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
	}
}

// ExtractPages reads a guideline document and returns its text one page at a
// time. PDFs yield one string per page; plain-text and markdown files yield a
// single page.
func ExtractPages(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []string{string(content)}, nil
	case ".pdf":
		return extractPagesFromPDF(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// extractPagesFromPDF uses UniPDF to get the text of each page of a PDF file.
func extractPagesFromPDF(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return nil, err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return nil, err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return nil, err
		}
		pages = append(pages, text)
	}

	return pages, nil
}

// isSupportedFile reports whether the indexer should pick up this file.
func isSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf", ".txt", ".md":
		return true
	default:
		return false
	}
}
