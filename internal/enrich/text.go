package enrich

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/PuerkitoBio/goquery"
)

// UnsupportedFileError is returned for resume uploads in an unknown format.
type UnsupportedFileError struct {
	Filename string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("unsupported resume file type: %s (use pdf, docx, doc, rtf, odt or txt)", e.Filename)
}

// SupportedExtensions lists the resume formats ExtractText accepts.
var SupportedExtensions = []string{".pdf", ".docx", ".doc", ".rtf", ".odt", ".txt"}

// ExtractText converts an uploaded resume into normalized plain text.
func ExtractText(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt":
		raw, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("text file %s is not valid UTF-8", filename)
		}
		return CleanText(string(raw)), nil
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		res, err := docconv.Convert(r, docconv.MimeTypeByExtension(filename), true)
		if err != nil {
			return "", fmt.Errorf("failed to parse document: %w", err)
		}
		return CleanText(res.Body), nil
	default:
		return "", &UnsupportedFileError{Filename: filename}
	}
}

// PlainText returns s unchanged unless it looks like HTML, in which case the
// visible text is extracted with paragraph and list structure kept as newlines.
func PlainText(s string) string {
	if !looksLikeHTML(s) {
		return CleanText(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CleanText(s)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").Each(func(_ int, sel *goquery.Selection) {
		sel.PrependHtml("- ")
	})
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, ul, ol").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	return CleanText(doc.Text())
}

var (
	htmlTagPattern   = regexp.MustCompile(`(?i)<(p|div|br|ul|ol|li|h[1-6]|span|strong|em|b|i|a|table|html|body)\b[^>]*>`)
	spaceRunPattern  = regexp.MustCompile(`[ \t\f\v]+`)
	blankRunsPattern = regexp.MustCompile(`\n{3,}`)
)

func looksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// CleanText normalizes line endings, collapses runs of spaces within lines
// and keeps at most one blank line between paragraphs.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	var buf bytes.Buffer
	for i, line := range lines {
		buf.WriteString(strings.TrimSpace(spaceRunPattern.ReplaceAllString(line, " ")))
		if i < len(lines)-1 {
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSpace(blankRunsPattern.ReplaceAllString(buf.String(), "\n\n"))
}
