// Package extract turns uploaded report files into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeCSV  = "text/csv"
	MimeText = "text/plain"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupported is returned for file types that cannot be turned into text.
var ErrUnsupported = errors.New("unsupported file type")

// CSVSeparator joins the cells of one CSV row.
const CSVSeparator = " | "

// Text extracts plain text from an in-memory upload.
// Libraries used: github.com/ledongthuc/pdf (PDF).
func Text(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind := DetectType(mimeType, fileName, data)
	switch kind {
	case MimePDF:
		return extractPDF(data)
	case MimeCSV:
		return extractCSV(data)
	case MimeDOCX:
		return extractDOCX(data)
	case MimeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text is not valid utf-8", ErrUnsupported)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

// DetectType resolves the file kind from the declared MIME type, then the
// file extension, then the content itself.
func DetectType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case MimePDF, MimeCSV, MimeDOCX:
		return clean
	case "application/csv", "text/comma-separated-values":
		return MimeCSV
	case "application/vnd.ms-excel":
		// Browsers on Windows report .csv uploads this way.
		if strings.EqualFold(filepath.Ext(fileName), ".csv") {
			return MimeCSV
		}
	case MimeText, "text/markdown", "text/tab-separated-values":
		if strings.EqualFold(filepath.Ext(fileName), ".csv") {
			return MimeCSV
		}
		return MimeText
	case "application/zip":
		if mapOOXMLFromZip(data) == MimeDOCX {
			return MimeDOCX
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".csv":
		return MimeCSV
	case ".txt", ".md", ".tsv", ".log":
		return MimeText
	case ".docx":
		return MimeDOCX
	}

	sniffed := strings.Split(http.DetectContentType(data), ";")[0]
	switch sniffed {
	case MimePDF, MimeText:
		return sniffed
	case "application/zip":
		if mapOOXMLFromZip(data) == MimeDOCX {
			return MimeDOCX
		}
	}
	if clean != "" {
		return clean
	}
	return sniffed
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractCSV flattens rows to one line each with cells joined by CSVSeparator.
// Ragged rows are kept as-is.
func extractCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var b strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read csv: %w", err)
		}
		cells := make([]string, 0, len(record))
		for _, cell := range record {
			cells = append(cells, strings.TrimSpace(cell))
		}
		line := strings.Join(cells, CSVSeparator)
		if strings.Trim(line, " |") == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return MimeDOCX
		}
	}
	return ""
}
