// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: document + chunk persistence and similarity search
//   - EmbeddingProvider: turns text into vectors
//   - TextExtractor: turns raw file bytes into plain text
//   - FileSource: reads raw bytes by storage path
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
