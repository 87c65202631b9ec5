// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// FENCED CODE BLOCKS
// =============================================================================

// Segment is a piece of message content: either prose or the body of a
// fenced code block.
type Segment struct {
	Code bool
	Lang string
	Text string
}

// SplitFences splits content on ``` fences. An unterminated fence runs to
// the end of the content, which is what a model cut off mid-block produces.
func SplitFences(content string) []Segment {
	var (
		segments []Segment
		buf      []string
		inCode   bool
		lang     string
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.Join(buf, "\n")
		if inCode || strings.TrimSpace(text) != "" {
			segments = append(segments, Segment{Code: inCode, Lang: lang, Text: text})
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			flush()
			if inCode {
				inCode, lang = false, ""
			} else {
				inCode, lang = true, strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return segments
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

func lexerFor(code, language string) chroma.Lexer {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func styleFor(name string) *chroma.Style {
	style := chromaStyles.Get(name)
	if style == nil {
		style = chromaStyles.Fallback
	}
	return style
}

// HighlightTerminal renders code with 256-colour ANSI escapes. On any
// highlighting failure the code is returned unchanged.
func HighlightTerminal(code, language string) string {
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexerFor(code, language).Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, styleFor("monokai"), iterator); err != nil {
		return code
	}
	return buf.String()
}

// HighlightHTML renders code as a <pre> block with inline styles, so the
// output needs no external stylesheet.
func HighlightHTML(code, language, theme string) (string, error) {
	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}

	iterator, err := lexerFor(code, language).Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))
	var buf strings.Builder
	if err := formatter.Format(&buf, styleFor(styleName), iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}
