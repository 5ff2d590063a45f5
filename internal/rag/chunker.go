package rag

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize   = 250
	DefaultOverlapSize = 50
)

// Chunker splits text into sentence-aligned chunks of at most size runes,
// each chunk after the first starting with up to overlap runes taken from
// the end of its predecessor.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w (chunk size %d, overlap %d)", ErrInvalidChunkOptions, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// ChunkText is a one-shot helper around NewChunker and Split.
func ChunkText(text string, size, overlap int) ([]string, error) {
	c, err := NewChunker(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split never returns an empty slice. Blank input comes back unchanged as
// the only element.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{text}
	}

	var chunks []string
	var buf []rune
	for _, sentence := range splitSentences(text) {
		s := []rune(sentence)
		if len(buf) > 0 && len(buf)+len(s) > c.size {
			closed := strings.TrimSpace(string(buf))
			if closed != "" {
				chunks = append(chunks, closed)
			}
			buf = append(c.seed(closed, len(s)), s...)
			continue
		}
		buf = append(buf, s...)
	}
	if last := strings.TrimSpace(string(buf)); last != "" {
		chunks = append(chunks, last)
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// seed returns the tail of closed that opens the next chunk. It is shortened
// so that it plus the next sentence still fits; an oversized sentence gets
// no seed at all.
func (c *Chunker) seed(closed string, next int) []rune {
	n := c.overlap
	if room := c.size - next; n > room {
		n = room
	}
	if n <= 0 {
		return nil
	}
	r := []rune(closed)
	if n > len(r) {
		n = len(r)
	}
	out := make([]rune, n)
	copy(out, r[len(r)-n:])
	return out
}

// splitSentences cuts text after every run of terminators. The pieces
// concatenate back to text exactly; an unterminated tail is its own piece.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	afterTerminator := false
	for i, r := range text {
		if isTerminator(r) {
			afterTerminator = true
			continue
		}
		if afterTerminator {
			sentences = append(sentences, text[start:i])
			start = i
			afterTerminator = false
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
