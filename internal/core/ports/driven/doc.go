// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ContentStore: Authenticates against the document repository
//   - Session: A per-notification authenticated repository session
//   - Recognizer: Submits file bytes to the OCR service
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - CursorStore: Persists the last processed change token per list.
//     Without it, every window falls back to the fixed look-back.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
