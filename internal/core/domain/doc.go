// Package domain defines the core business entities for ocrhook.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Notification: An inbound webhook change notification
//   - ChangeWindow/ChangeToken: The token-bounded delta query range
//   - ChangeRecord: A single change reported by the content repository
//   - OCRResult: The recognition output hierarchy (regions/lines/words)
//   - Subscription: A webhook subscription on a list
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
