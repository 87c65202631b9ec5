// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components renders the pieces of the chat screen: message
// blocks, the error box with its remediation text, the status bar and the
// conversation and model pickers.
//
// Components are plain values with a View method (or plain render
// functions); the chat model owns layout and state.
package components
