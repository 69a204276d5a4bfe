// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with chat models inside lcagent.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the ChatModel interface from
// this package so higher layers (nodes, networks) remain decoupled from
// vendor SDKs. The reference-counted registry resolves chat models by name
// at node invocation time, enabling lazy per-invocation model selection.
package model
