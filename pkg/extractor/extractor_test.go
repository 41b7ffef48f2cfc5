package extractor_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xhad/sowgen/internal/models"
	"github.com/xhad/sowgen/internal/testutil"
	"github.com/xhad/sowgen/pkg/extractor"
)

func TestExtractDOCX(t *testing.T) {
	e := extractor.New()

	text, err := e.Extract(models.Upload{
		Name: "brief.DOCX",
		Data: testutil.DOCX("Inspect 10 sites monthly", "", "Report within 5 days & flag <issues>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Inspect 10 sites monthly\n\nReport within 5 days & flag <issues>", text)
}

func TestExtractDOCXBodyOnly(t *testing.T) {
	body := testutil.WordParagraph("Scope") +
		`<w:tbl><w:tr><w:tc>` + testutil.WordParagraph("Cell text") + `</w:tc></w:tr></w:tbl>` +
		`<w:p><w:r><w:t>Intro</w:t></w:r><w:r><w:pict><w:txbxContent>` +
		testutil.WordParagraph("Box text") +
		`</w:txbxContent></w:pict></w:r></w:p>` +
		testutil.WordParagraph("Closing")

	text, err := extractor.New().Extract(models.Upload{Name: "brief.docx", Data: testutil.DOCXBody(body)})
	require.NoError(t, err)
	assert.Equal(t, "Scope\nIntro\nClosing", text)
}

func TestExtractPPTX(t *testing.T) {
	e := extractor.New()

	slides := make([][]string, 11)
	for i := range slides {
		slides[i] = []string{"slide " + string(rune('A'+i))}
	}
	slides[0] = []string{"Title", "Subtitle"}

	text, err := e.Extract(models.Upload{Name: "deck.pptx", Data: testutil.PPTX(slides...)})
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "Title", lines[0])
	assert.Equal(t, "Subtitle", lines[1])
	assert.Equal(t, "slide B", lines[2])
	// slide10 and slide11 must come after slide9, not after slide1
	assert.Equal(t, "slide K", lines[11])
}

func TestExtractPPTXDeckOrder(t *testing.T) {
	slides := [][]string{{"first file"}, {"second file"}, {"third file"}}

	t.Run("follows the presentation part", func(t *testing.T) {
		data := testutil.ReorderedPPTX([]int{3, 1, 2}, slides...)
		text, err := extractor.New().Extract(models.Upload{Name: "deck.pptx", Data: data})
		require.NoError(t, err)
		assert.Equal(t, "third file\nfirst file\nsecond file", text)
	})

	t.Run("slides missing from the deck are left out", func(t *testing.T) {
		data := testutil.ReorderedPPTX([]int{2}, slides...)
		text, err := extractor.New().Extract(models.Upload{Name: "deck.pptx", Data: data})
		require.NoError(t, err)
		assert.Equal(t, "second file", text)
	})

	t.Run("falls back to file numbers", func(t *testing.T) {
		data := testutil.ReorderedPPTX(nil, slides...)
		text, err := extractor.New().Extract(models.Upload{Name: "deck.pptx", Data: data})
		require.NoError(t, err)
		assert.Equal(t, "first file\nsecond file\nthird file", text)
	})
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestExtractPDF(t *testing.T) {
	text, err := extractor.New().Extract(models.Upload{Name: "rfp.pdf", Data: readTestdata(t, "two-pages.pdf")})
	require.NoError(t, err)

	assert.Contains(t, text, "A Simple PDF File")
	assert.Contains(t, text, "continued from page 1")
	assert.Contains(t, text, "The end, and just as well.")
	assert.Less(t, strings.Index(text, "A Simple PDF File"), strings.Index(text, "The end"))
}

func TestExtractXLS(t *testing.T) {
	text, err := extractor.New().Extract(models.Upload{Name: "codes.xls", Data: readTestdata(t, "table.xls")})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Sheet: Table\n"), text)
	assert.Contains(t, text, "Code\tName\tDescription\n")
	assert.Contains(t, text, "code1\tname1\tdescription1\n")
	assert.Contains(t, text, "code11\tname11\tdescription11")
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Item"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Price"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Drone survey"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 5000))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	text, err := extractor.New().Extract(models.Upload{Name: "prices.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, "Sheet: Sheet1\nItem\tPrice\nDrone survey\t5000", text)
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := extractor.New()

	text, err := e.Extract(models.Upload{Name: "notes.txt", Data: []byte("plain text")})
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = e.Extract(models.Upload{Name: "no-extension", Data: []byte("data")})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractUsesDeclaredExtension(t *testing.T) {
	text, err := extractor.New().Extract(models.Upload{
		Name:      "upload.bin",
		Extension: ".docx",
		Data:      testutil.DOCX("declared wins"),
	})
	require.NoError(t, err)
	assert.Equal(t, "declared wins", text)
}

func TestExtractMalformedFiles(t *testing.T) {
	e := extractor.New()

	for _, name := range []string{"bad.pdf", "bad.docx", "bad.pptx", "bad.xlsx", "bad.xls"} {
		t.Run(name, func(t *testing.T) {
			_, err := e.Extract(models.Upload{Name: name, Data: []byte("definitely not an office file")})
			assert.Error(t, err)
		})
	}
}

func TestExtractCapsLength(t *testing.T) {
	long := strings.Repeat("é", extractor.DefaultMaxChars+500)

	text, err := extractor.New().Extract(models.Upload{Name: "long.docx", Data: testutil.DOCX(long)})
	require.NoError(t, err)
	assert.Equal(t, extractor.DefaultMaxChars, utf8.RuneCountInString(text))

	small := extractor.NewWithConfig(extractor.ExtractorConfig{MaxChars: 10})
	text, err = small.Extract(models.Upload{Name: "long.docx", Data: testutil.DOCX(long)})
	require.NoError(t, err)
	assert.Equal(t, 10, utf8.RuneCountInString(text))
}

func TestRegisterReader(t *testing.T) {
	e := extractor.New()
	e.Register(".TXT", func(data []byte) (string, error) {
		return string(data), nil
	})

	assert.Equal(t, []string{"docx", "pdf", "pptx", "txt", "xls", "xlsx"}, e.Supported())

	text, err := e.Extract(models.Upload{Name: "notes.txt", Data: []byte("registered")})
	require.NoError(t, err)
	assert.Equal(t, "registered", text)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", extractor.Truncate("abcdef", 3))
	assert.Equal(t, "ab", extractor.Truncate("ab", 3))
	assert.Equal(t, "", extractor.Truncate("ab", 0))
	assert.Equal(t, "日本", extractor.Truncate("日本語", 2))
}
