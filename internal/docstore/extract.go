package docstore

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Supported file extensions.
const (
	extText     = ".txt"
	extMarkdown = ".md"
	extDocx     = ".docx"
	extPDF      = ".pdf"
)

// errUnsupported marks a file quill recognises but cannot read.
var errUnsupported = fmt.Errorf("unsupported format")

// errNoText marks a PDF with no extractable text layer, e.g. a scan.
var errNoText = fmt.Errorf("no extractable text")

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extText, extMarkdown, extDocx, extPDF:
		return true
	}
	return false
}

// extractText returns the trimmed text of the file at path.
func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case extText, extMarkdown:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	case extDocx:
		return extractDocx(path)
	case extPDF:
		return extractPDF(path)
	default:
		return "", errUnsupported
	}
}

// extractPDF returns the plain text of every page, in page order.
func extractPDF(path string) (text string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	// The reader panics on some malformed content streams.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", p)
		}
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	text = strings.TrimSpace(string(data))
	if text == "" {
		return "", errNoText
	}
	return text, nil
}

// Minimal WordprocessingML model: body paragraphs and tables in document order.
type docxBody struct {
	Items []docxBlock `xml:",any"`
}

type docxBlock struct {
	XMLName xml.Name
	Props   *docxParaProps `xml:"pPr"`
	Runs    []docxRun      `xml:"r"`
	Rows    []docxRow      `xml:"tr"`
}

type docxParaProps struct {
	Style   *docxVal  `xml:"pStyle"`
	NumProp *struct{} `xml:"numPr"`
}

type docxVal struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Texts []string   `xml:"t"`
	Tabs  []struct{} `xml:"tab"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxBlock `xml:"p"`
}

type docxDocument struct {
	Body docxBody `xml:"body"`
}

// extractDocx flattens word/document.xml: list paragraphs get a "- " prefix,
// table rows are joined with " | " and followed by a blank line.
func extractDocx(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	var doc docxDocument
	found := false
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}
		if err := xml.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}
		found = true
		break
	}
	if !found {
		return "", fmt.Errorf("docx has no word/document.xml")
	}

	var chunks []string
	var tables []string
	for _, block := range doc.Body.Items {
		switch block.XMLName.Local {
		case "p":
			text := strings.TrimSpace(block.text())
			if text == "" {
				continue
			}
			if block.isList() {
				text = "- " + text
			}
			chunks = append(chunks, text)
		case "tbl":
			for _, row := range block.Rows {
				cells := make([]string, 0, len(row.Cells))
				for _, cell := range row.Cells {
					parts := make([]string, 0, len(cell.Paragraphs))
					for _, p := range cell.Paragraphs {
						if t := strings.TrimSpace(p.text()); t != "" {
							parts = append(parts, t)
						}
					}
					cells = append(cells, strings.Join(parts, "\n"))
				}
				tables = append(tables, strings.Join(cells, " | "))
			}
			tables = append(tables, "")
		}
	}

	// Tables follow the paragraphs.
	chunks = append(chunks, tables...)
	return strings.TrimSpace(strings.Join(chunks, "\n")), nil
}

func (b docxBlock) text() string {
	var sb strings.Builder
	for _, run := range b.Runs {
		for range run.Tabs {
			sb.WriteString("\t")
		}
		for _, t := range run.Texts {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

func (b docxBlock) isList() bool {
	if b.Props == nil {
		return false
	}
	if b.Props.NumProp != nil {
		return true
	}
	if b.Props.Style == nil {
		return false
	}
	style := strings.ToLower(b.Props.Style.Val)
	for _, key := range []string{"list", "bullet", "number"} {
		if strings.Contains(style, key) {
			return true
		}
	}
	return false
}
