// Package extract turns uploaded study documents into plain text.
//
// Supported formats are PDF, DOCX, legacy DOC and plain text. Anything else
// is rejected with ErrUnsupportedFormat before any processing happens.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// ErrUnsupportedFormat reports a file type outside the accepted set.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies a supported document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
	FormatTXT  Format = "txt"
)

// mimeFormats maps declared MIME types to formats, mirroring the upload
// content types browsers send for each document kind.
var mimeFormats = map[string]Format{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"application/msword": FormatDOC,
	"text/plain":         FormatTXT,
}

// DetectFormat resolves the document format from the uploaded filename
// extension, falling back to the declared content type. Returns
// ErrUnsupportedFormat when neither identifies an accepted format.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".doc":
		return FormatDOC, nil
	case ".txt":
		return FormatTXT, nil
	}

	// Strip any parameters, e.g. "text/plain; charset=utf-8".
	mt, _, _ := strings.Cut(contentType, ";")
	if f, ok := mimeFormats[strings.TrimSpace(mt)]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, filepath.Ext(filename), contentType)
}

// Text extracts plain text from the file at path, which must contain a
// document of the given format.
func Text(path string, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return pdfText(path)
	case FormatDOCX:
		return docxText(path)
	case FormatDOC:
		return docText(path)
	case FormatTXT:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading text file: %w", err)
		}
		// Uploads are not guaranteed to be UTF-8; replace invalid bytes here
		// so downstream rune-based chunking round-trips exactly.
		return strings.ToValidUTF8(string(data), "�"), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func pdfText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("parsing pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func docxText(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer r.Close()

	return wordXMLText(r.Editable().GetContent()), nil
}

// wordXMLText pulls the text runs out of WordprocessingML content. Runs live
// in <w:t> elements; paragraph ends become newlines.
func wordXMLText(content string) string {
	var sb strings.Builder
	for {
		start := strings.Index(content, "<w:t")
		if start < 0 {
			break
		}
		rest := content[start:]
		open := strings.Index(rest, ">")
		if open < 0 {
			break
		}
		// Self-closing run, no text.
		if rest[open-1] == '/' {
			content = rest[open+1:]
			continue
		}
		end := strings.Index(rest[open+1:], "</w:t>")
		if end < 0 {
			break
		}
		if strings.Contains(content[:start], "</w:p>") && sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(rest[open+1 : open+1+end])
		content = rest[open+1+end:]
	}
	return sb.String()
}
