// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigchat command tree.
//
// Running rigchat with no subcommand opens the full-screen chat. The
// subcommands cover scripting and quick use:
//
//	rigchat chat                  line-oriented chat session
//	rigchat ask "question"        one answer, streamed to stdout
//	rigchat models                installed models
//	rigchat model [name]          show or select the model
//	rigchat history <subcommand>  list, show, search, export, delete
//	rigchat serve                 local HTTP bridge
//	rigchat status                server reachability
//	rigchat config show|init|path
//
// Commands that print data accept --json.
package cli
