package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

const (
	wordNamespace    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	drawingNamespace = "http://schemas.openxmlformats.org/drawingml/2006/main"
)

var errMissingPart = errors.New("missing document part")

func readDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	part := findPart(archive, "word/document.xml")
	if part == nil {
		return "", fmt.Errorf("word/document.xml: %w", errMissingPart)
	}

	// body paragraphs only: table cells and text boxes are layout, not prose
	paragraphs, err := readPartParagraphs(part, wordNamespace, "tbl", "txbxContent")
	if err != nil {
		return "", err
	}

	return strings.Join(paragraphs, "\n"), nil
}

func readPPTX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}

	slides, err := slideOrder(archive)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, slide := range slides {
		paragraphs, err := readPartParagraphs(slide, drawingNamespace)
		if err != nil {
			return "", err
		}
		lines = append(lines, paragraphs...)
	}

	return strings.Join(lines, "\n"), nil
}

type presentationPart struct {
	Slides []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsPart struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideOrder returns the slide parts in deck order, as listed by
// ppt/presentation.xml. Decks without the presentation part or its
// relationships fall back to the slide file numbers.
func slideOrder(archive *zip.Reader) ([]*zip.File, error) {
	pres := findPart(archive, "ppt/presentation.xml")
	rels := findPart(archive, "ppt/_rels/presentation.xml.rels")
	if pres == nil || rels == nil {
		return slidesByNumber(archive), nil
	}

	var p presentationPart
	if err := decodePart(pres, &p); err != nil {
		return nil, err
	}
	var r relationshipsPart
	if err := decodePart(rels, &r); err != nil {
		return nil, err
	}

	targets := make(map[string]string, len(r.Relationships))
	for _, rel := range r.Relationships {
		target := strings.TrimPrefix(rel.Target, "/")
		if !strings.HasPrefix(rel.Target, "/") {
			target = path.Join("ppt", rel.Target)
		}
		targets[rel.ID] = target
	}

	var slides []*zip.File
	for _, s := range p.Slides {
		if f := findPart(archive, targets[s.RelID]); f != nil {
			slides = append(slides, f)
		}
	}
	return slides, nil
}

func slidesByNumber(archive *zip.Reader) []*zip.File {
	var slides []*zip.File
	for _, f := range archive.File {
		if slideNumber(f.Name) > 0 {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})
	return slides
}

func decodePart(part *zip.File, v interface{}) error {
	rc, err := part.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", part.Name, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", part.Name, err)
	}
	return nil
}

// slideNumber returns N for "ppt/slides/slideN.xml" and 0 otherwise.
func slideNumber(name string) int {
	const prefix, suffix = "ppt/slides/slide", ".xml"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
	if err != nil {
		return 0
	}
	return n
}

func findPart(archive *zip.Reader, name string) *zip.File {
	for _, f := range archive.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readPartParagraphs(part *zip.File, namespace string, skip ...string) ([]string, error) {
	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", part.Name, err)
	}
	defer rc.Close()

	paragraphs, err := scanParagraphs(rc, namespace, skip...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", part.Name, err)
	}
	return paragraphs, nil
}

// scanParagraphs walks an OOXML part and returns the text of each <p> element
// in the given namespace. Runs inside a paragraph are concatenated. Anything
// inside a skip element is ignored, including paragraphs nested in it.
func scanParagraphs(r io.Reader, namespace string, skip ...string) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		out     []string
		current strings.Builder
		inPara  int
		inText  bool
		skipped int
	)

	isSkipped := func(name xml.Name) bool {
		for _, s := range skip {
			if name.Local == s {
				return true
			}
		}
		return false
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Space != namespace {
				continue
			}
			if isSkipped(el.Name) {
				skipped++
			}
			if skipped > 0 {
				continue
			}
			switch el.Name.Local {
			case "p":
				if inPara == 0 {
					current.Reset()
				}
				inPara++
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			if el.Name.Space != namespace {
				continue
			}
			if skipped > 0 {
				if isSkipped(el.Name) {
					skipped--
				}
				continue
			}
			switch el.Name.Local {
			case "p":
				inPara--
				if inPara == 0 {
					out = append(out, current.String())
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && inPara > 0 {
				current.Write(el)
			}
		}
	}

	return out, nil
}
