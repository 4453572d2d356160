package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"question-extract/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// ParseFile extracts text segments from a document file, dispatching on the
// file extension. Segments keep their page (or sheet) index so downstream
// chunks can report where a question came from.
func ParseFile(filePath string) ([]models.Segment, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".ods":
		return parseODS(filePath)
	case ".txt":
		return parseText(filePath)
	case ".json":
		return ParseSegmentJSON(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// SupportedExt reports whether ParseFile can handle the extension.
func SupportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".xlsx", ".ods", ".txt", ".json":
		return true
	}
	return false
}

func parsePDF(filePath string) ([]models.Segment, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var segments []models.Segment
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		for _, para := range splitParagraphs(pageText) {
			segments = append(segments, models.Segment{
				Type:      "text",
				Text:      para,
				PageIndex: i,
			})
		}
	}
	return segments, nil
}

func parseDOCX(filePath string) ([]models.Segment, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc := r.Editable()
	content := doc.GetContent()
	var segments []models.Segment
	for _, p := range strings.Split(content, "\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segments = append(segments, models.Segment{Type: "text", Text: p, PageIndex: 1})
	}
	return segments, nil
}

func parseXLSX(filePath string) ([]models.Segment, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var segments []models.Segment
	for sheetNum, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			var cells []string
			for _, cell := range row.Cells {
				if s := strings.TrimSpace(cell.String()); s != "" {
					cells = append(cells, s)
				}
			}
			if len(cells) == 0 {
				continue
			}
			segments = append(segments, models.Segment{
				Type:      "text",
				Text:      strings.Join(cells, "\t"),
				PageIndex: sheetNum + 1,
			})
		}
	}
	return segments, nil
}

func parseODS(filePath string) ([]models.Segment, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segments []models.Segment
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if s := strings.TrimSpace(cell); s != "" {
					cells = append(cells, s)
				}
			}
			if len(cells) == 0 {
				continue
			}
			segments = append(segments, models.Segment{
				Type:      "text",
				Text:      strings.Join(cells, "\t"),
				PageIndex: sheetNum + 1,
			})
		}
	}
	return segments, nil
}

func parseText(filePath string) ([]models.Segment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var segments []models.Segment
	for _, para := range splitParagraphs(string(data)) {
		segments = append(segments, models.Segment{Type: "text", Text: para, PageIndex: 1})
	}
	return segments, nil
}

// splitParagraphs breaks extracted text on blank lines, trimming each block.
func splitParagraphs(text string) []string {
	var paras []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paras = append(paras, block)
		}
	}
	return paras
}
