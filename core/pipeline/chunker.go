package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/hrrag/model"
)

var (
	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}\s`)
	paragraphPattern = regexp.MustCompile(`\n\s*\n`)
)

// section is the text between two heading markers
type section struct {
	heading string
	body    string
}

// MarkdownChunker creates a chunker that splits prose on headings and then paragraphs.
// Paragraphs are packed greedily up to maxChars characters, and each new chunk of a
// section starts with the last overlap characters of the previous one.
// A paragraph longer than maxChars is emitted whole.
func MarkdownChunker(maxChars int, overlap int) ChunkFunc {
	return func(text string, source string) ([]model.Chunk, error) {
		if maxChars <= 0 {
			return nil, fmt.Errorf("%w: max chars must be positive", model.ErrConfiguration)
		}
		if overlap < 0 || overlap >= maxChars {
			return nil, fmt.Errorf("%w: overlap must be in [0, %d)", model.ErrConfiguration, maxChars)
		}

		var chunks []model.Chunk
		for _, s := range splitSections(text) {
			for _, body := range packParagraphs(s.body, maxChars, overlap) {
				var metadata model.Metadata
				if s.heading != "" {
					metadata = model.Metadata{model.MetadataSection: s.heading}
				}
				chunks = append(chunks, model.Chunk{
					Text:     body,
					Source:   source,
					Kind:     model.ContentKindProse,
					Metadata: metadata,
				})
			}
		}

		return chunks, nil
	}
}

// TableRowChunk turns one table row into exactly one chunk, truncating it to
// maxChars characters followed by " ..." when it is longer.
func TableRowChunk(rowText string, source string, maxChars int) model.Chunk {
	if maxChars > 0 && utf8.RuneCountInString(rowText) > maxChars {
		rowText = string([]rune(rowText)[:maxChars]) + " ..."
	}
	return model.Chunk{
		Text:   rowText,
		Source: source,
		Kind:   model.ContentKindTable,
	}
}

// splitSections cuts text at heading markers. The marker itself is dropped,
// the heading line stays at the top of its section.
func splitSections(text string) []section {
	locs := headingPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []section{{body: text}}
	}

	var sections []section
	if pre := text[:locs[0][0]]; strings.TrimSpace(pre) != "" {
		sections = append(sections, section{body: pre})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := text[loc[1]:end]
		if strings.TrimSpace(body) == "" {
			continue
		}
		heading, _, _ := strings.Cut(strings.TrimLeft(body, " \t"), "\n")
		sections = append(sections, section{
			heading: strings.TrimSpace(heading),
			body:    body,
		})
	}
	return sections
}

// packParagraphs implements the greedy accumulation with overlap for one section.
func packParagraphs(body string, maxChars int, overlap int) []string {
	var out []string
	var buf string
	bufLen := 0

	for _, p := range paragraphPattern.Split(body, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pLen := utf8.RuneCountInString(p)

		if buf == "" {
			buf, bufLen = p, pLen
			continue
		}
		if bufLen+pLen+2 <= maxChars {
			buf += "\n\n" + p
			bufLen += pLen + 2
			continue
		}

		out = append(out, buf)
		seed := overlapSeed(buf, bufLen, overlap, maxChars-2-pLen)
		if seed == "" {
			buf, bufLen = p, pLen
			continue
		}
		buf = seed + "\n\n" + p
		bufLen = utf8.RuneCountInString(seed) + 2 + pLen
	}

	if buf != "" {
		out = append(out, buf)
	}
	return out
}

// overlapSeed returns the last overlap characters of buf, shortened to room
// so the seeded chunk stays within bounds. No seed when buf is not longer than overlap.
func overlapSeed(buf string, bufLen int, overlap int, room int) string {
	if overlap == 0 || bufLen <= overlap {
		return ""
	}
	n := overlap
	if room < n {
		n = room
	}
	if n <= 0 {
		return ""
	}
	runes := []rune(buf)
	return string(runes[len(runes)-n:])
}
