package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/xhad/sowgen/internal/models"
	"github.com/xhad/sowgen/internal/types"
)

// Verify interface compliance
var _ types.Processor = (*Processor)(nil)

type ProcessorConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
}

// Processor normalises clause text and splits it into overlapping chunks
// for the clause library.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) *Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 40
	}

	return &Processor{
		config: config,
	}
}

func (p *Processor) Process(docs []models.Document) ([]models.ProcessedDocument, error) {
	var processed []models.ProcessedDocument

	for _, doc := range docs {
		cleanContent := cleanText(doc.Content)
		if cleanContent == "" {
			continue
		}
		if doc.ID == "" {
			doc.ID = ContentID(cleanContent)
		}

		chunks := p.splitIntoChunks(cleanContent)
		if len(chunks) == 0 {
			continue
		}

		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   chunks,
		})
	}

	return processed, nil
}

// FromExamples turns fetched examples into library documents. Library
// hits and pasted text are skipped; only scraped material is kept.
func FromExamples(examples []models.Example) []models.Document {
	var docs []models.Document
	for _, ex := range examples {
		switch ex.Origin {
		case models.OriginReference, models.OriginURL, models.OriginFiling:
		default:
			continue
		}
		docs = append(docs, models.Document{
			URL:     ex.Source,
			Title:   string(ex.Origin),
			Content: ex.Text,
			Metadata: map[string]interface{}{
				"origin": string(ex.Origin),
			},
		})
	}
	return docs
}

// ContentID is a stable id for a piece of text.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

func cleanText(text string) string {
	// Replace multiple spaces with single space
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}

func (p *Processor) splitIntoChunks(text string) []string {
	if utf8.RuneCountInString(text) <= p.config.ChunkSize {
		if utf8.RuneCountInString(text) < p.config.MinChunkLength {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	currentChunk := strings.Builder{}

	for _, sentence := range splitIntoSentences(text) {
		// If adding this sentence would exceed chunk size
		if utf8.RuneCountInString(currentChunk.String())+utf8.RuneCountInString(sentence) > p.config.ChunkSize && currentChunk.Len() > 0 {
			chunk := strings.TrimSpace(currentChunk.String())
			if utf8.RuneCountInString(chunk) >= p.config.MinChunkLength {
				chunks = append(chunks, chunk)
			}

			// Start new chunk with overlap
			currentChunk.Reset()
			if tail := lastRunes(chunk, p.config.ChunkOverlap); tail != "" {
				currentChunk.WriteString(tail)
				currentChunk.WriteString(" ")
			}
		}

		currentChunk.WriteString(sentence)
		currentChunk.WriteString(" ")
	}

	// Add the last chunk if it meets minimum length
	if chunk := strings.TrimSpace(currentChunk.String()); utf8.RuneCountInString(chunk) >= p.config.MinChunkLength {
		chunks = append(chunks, chunk)
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	var sentences []string
	current := strings.Builder{}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		// A sentence ends at . ! ? followed by whitespace or the end
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}

	// Add any remaining text
	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return ""
	}
	return strings.TrimSpace(string(runes[len(runes)-n:]))
}
