// Package model defines the provider-agnostic chat-completion contract the
// agent loop drives.
//
// Core goals:
//   - Unify the provider round trip behind a single Provider interface
//   - Normalize tool/function call representation (ToolDefinition, ToolCall)
//   - Keep request/response shapes minimal and transport independent
//
// Providers (model/openai, model/anthropic) implement Provider so the agent
// loop stays decoupled from vendor SDKs.
package model
