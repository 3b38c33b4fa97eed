// Package state keeps per-chat conversation state for Telegram bots.
// It is domain-agnostic: a Store holds at most one value per chat ID, and
// KeyLocks serializes the handling of updates that belong to the same chat.
package state
