// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.AppendUser("How do I print in Go?")
	conv.AppendAssistant("Use fmt:\n\n```go\nfmt.Println(\"hi\")\n```\n\nThat's `fmt.Println`.")
	return conv
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"md": ".md", "markdown": ".md", "html": ".html", "JSON": ".json", "": ".md"} {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, exp.FileExtension(), format)
	}
	_, err := ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestMarkdownExport(t *testing.T) {
	conv := sampleConversation()
	opts := DefaultOptions()
	opts.Model = "deepseek"

	out, err := NewMarkdownExporter(opts).Export(conv)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "id: "+conv.ID)
	assert.Contains(t, md, "model: deepseek")
	assert.Contains(t, md, "title: How do I print in Go?")
	assert.Contains(t, md, "# How do I print in Go?")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "### Assistant")
	assert.Contains(t, md, "```go\nfmt.Println(\"hi\")\n```")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	opts := &Options{}
	out, err := NewMarkdownExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(out), "---"))
	assert.Contains(t, string(out), "### You\n\n")
}

func TestExport_RejectsEmpty(t *testing.T) {
	for _, exp := range []Exporter{NewMarkdownExporter(nil), NewHTMLExporter(nil)} {
		_, err := exp.Export(model.NewConversation())
		assert.Error(t, err)
		_, err = exp.Export(nil)
		assert.Error(t, err)
	}
}

func TestHTMLExport_HighlightsAndEscapes(t *testing.T) {
	conv := model.NewConversation()
	conv.AppendUser("<script>alert(1)</script>")
	conv.AppendAssistant("```go\npackage main\n```")

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<body class=\"dark-theme\">")
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.Contains(t, page, "<div class=\"code-lang\">go</div>")
	// chroma inline styles
	assert.Contains(t, page, "<pre")
	assert.Contains(t, page, "style=")
}

func TestJSONExport_RoundTrips(t *testing.T) {
	conv := sampleConversation()
	out, err := NewJSONExporter(nil).Export(conv)
	require.NoError(t, err)

	var back model.Conversation
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, conv.ID, back.ID)
	assert.Len(t, back.Messages, 2)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ToFile(sampleConversation(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "conversation_How_do_I_print_in_Go-_"))
	assert.Equal(t, ".md", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.Equal(t, "Long_title", sanitizeFilename("Long title..."))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("x", 80))), 50)
}

func TestSplitFences(t *testing.T) {
	segs := SplitFences("intro\n```python\nprint(1)\n```\noutro\n```\nunterminated")
	require.Len(t, segs, 4)
	assert.Equal(t, Segment{Text: "intro"}, segs[0])
	assert.Equal(t, Segment{Code: true, Lang: "python", Text: "print(1)"}, segs[1])
	assert.Equal(t, Segment{Text: "outro"}, segs[2])
	assert.Equal(t, Segment{Code: true, Text: "unterminated"}, segs[3])
}

func TestHighlightTerminal(t *testing.T) {
	out := HighlightTerminal("func main() {}", "go")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "main")
}
