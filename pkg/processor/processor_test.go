package processor_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/sowgen/internal/models"
	"github.com/xhad/sowgen/pkg/processor"
)

func TestProcessor_Process(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      60,
		ChunkOverlap:   10,
		MinChunkLength: 5,
	})

	documents := []models.Document{
		{Content: "The Service Provider shall inspect each site.   It shall report findings within five days. Payment is due monthly."},
	}

	processedDocs, err := p.Process(documents)
	require.NoError(t, err)
	require.Len(t, processedDocs, 1)

	doc := processedDocs[0]
	assert.NotEmpty(t, doc.ID)
	assert.Greater(t, len(doc.Chunks), 1)
	assert.Equal(t, "The Service Provider shall inspect each site.", doc.Chunks[0])
	for _, chunk := range doc.Chunks {
		assert.NotContains(t, chunk, "  ")
	}
	// overlap carries the tail of the previous chunk
	assert.True(t, strings.HasPrefix(doc.Chunks[1], "each site. It shall"), doc.Chunks[1])
}

func TestProcessor_ShortClauseIsOneChunk(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MinChunkLength: 10})

	processedDocs, err := p.Process([]models.Document{
		{ID: "fixed", Content: "  Provider warrants the work for ninety days.  "},
		{Content: "tiny"},
		{Content: "   "},
	})
	require.NoError(t, err)
	require.Len(t, processedDocs, 1)
	assert.Equal(t, "fixed", processedDocs[0].ID)
	assert.Equal(t, []string{"Provider warrants the work for ninety days."}, processedDocs[0].Chunks)
}

func TestProcessor_ChunksRespectSize(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 20, MinChunkLength: 1})

	text := strings.Repeat("Le prestataire livre un rapport détaillé. ", 30)
	processedDocs, err := p.Process([]models.Document{{Content: text}})
	require.NoError(t, err)
	require.Len(t, processedDocs, 1)

	for _, chunk := range processedDocs[0].Chunks {
		assert.True(t, utf8.ValidString(chunk))
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100+20+1)
	}
}

func TestFromExamples(t *testing.T) {
	docs := processor.FromExamples([]models.Example{
		{Origin: models.OriginReference, Source: "https://ref", Text: "ref clause"},
		{Origin: models.OriginCustom, Text: "pasted"},
		{Origin: models.OriginLibrary, Text: "already stored"},
		{Origin: models.OriginFiling, Source: "https://sec", Text: "filing"},
	})

	require.Len(t, docs, 2)
	assert.Equal(t, "https://ref", docs[0].URL)
	assert.Equal(t, "filing", docs[1].Metadata["origin"])
}

func TestContentID(t *testing.T) {
	assert.Equal(t, processor.ContentID("a"), processor.ContentID("a"))
	assert.NotEqual(t, processor.ContentID("a"), processor.ContentID("b"))
	assert.Len(t, processor.ContentID("a"), 16)
}
