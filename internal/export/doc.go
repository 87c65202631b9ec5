// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversations to Markdown, HTML and JSON.
//
// # Key Types
//
//   - Exporter: format interface (Export, FileExtension, MimeType)
//   - Options: metadata, timestamps, HTML theme, output directory
//   - Segment: a run of prose or a fenced code block, as found by SplitFences
//
// Fenced code blocks are syntax highlighted with chroma: as inline-styled
// HTML for the HTML exporter, and as 256-colour ANSI via HighlightTerminal
// for terminal display.
//
// # Usage
//
//	path, err := export.ToFile(conv, export.NewMarkdownExporter(opts), opts)
package export
