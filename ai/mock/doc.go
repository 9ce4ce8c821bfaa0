// Package mock provides test double implementations of the AI service
// interfaces.
//
// The mocks allow tests to run without external AI services and with
// controlled, deterministic behavior. Defaults are sensible: the embedder
// returns deterministic vectors derived from the text hash, the classifier
// labels everything "other", and the extractors return minimal valid
// artifacts. Custom behavior is injected via the exported function fields.
package mock
