// Package testutil builds minimal office documents for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	wordNS    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	drawingNS = "http://schemas.openxmlformats.org/drawingml/2006/main"
	presentNS = "http://schemas.openxmlformats.org/presentationml/2006/main"
	relsNS    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// DOCX returns a word document with one paragraph per argument.
func DOCX(paragraphs ...string) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(WordParagraph(p))
	}
	return DOCXBody(body.String())
}

// WordParagraph is the body markup for a single plain paragraph.
func WordParagraph(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escape(text))
}

// DOCXBody returns a word document whose body is the given markup. The w
// prefix is bound to the wordprocessing namespace.
func DOCXBody(body string) []byte {
	document := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="%s"><w:body>%s</w:body></w:document>`, wordNS, body)

	return archive(map[string]string{
		"[Content_Types].xml": contentTypes,
		"word/document.xml":   document,
	})
}

// PPTX returns a presentation with one slide per argument. Each slide
// holds a single shape whose paragraphs are the slide's strings.
func PPTX(slides ...[]string) []byte {
	order := make([]int, len(slides))
	for i := range order {
		order[i] = i + 1
	}
	return ReorderedPPTX(order, slides...)
}

// ReorderedPPTX is PPTX with the deck order decoupled from the part names:
// slides[i] is stored as slide{i+1}.xml and order lists those numbers as the
// deck shows them. A nil order leaves out the presentation part entirely.
func ReorderedPPTX(order []int, slides ...[]string) []byte {
	parts := map[string]string{
		"[Content_Types].xml": contentTypes,
	}

	if order != nil {
		var ids, rels strings.Builder
		for i, n := range order {
			fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, n+1)
		}
		for i := range slides {
			fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s/slide" Target="slides/slide%d.xml"/>`, i+2, relsNS, i+1)
		}
		parts["ppt/presentation.xml"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="%s" xmlns:r="%s"><p:sldIdLst>%s</p:sldIdLst></p:presentation>`,
			presentNS, relsNS, ids.String())
		parts["ppt/_rels/presentation.xml.rels"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">%s</Relationships>`,
			rels.String())
	}

	for i, lines := range slides {
		var paras strings.Builder
		for _, line := range lines {
			fmt.Fprintf(&paras, `<a:p><a:r><a:t>%s</a:t></a:r></a:p>`, escape(line))
		}
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = fmt.Sprintf(
			`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="%s" xmlns:p="%s"><p:cSld><p:spTree><p:sp><p:txBody>%s</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`,
			drawingNS, presentNS, paras.String())
	}

	return archive(parts)
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`

func archive(parts map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func escape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		panic(err)
	}
	return b.String()
}
