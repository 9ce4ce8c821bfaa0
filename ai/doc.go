// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the AI services the ingestion
// pipeline depends on: text embeddings, document classification, and
// structured extraction of chapter maps and exam coverage.
//
// The pipeline depends only on the interfaces defined here, never on a
// concrete provider. Implementation sub-packages:
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/heuristic: offline keyword classifier, no network calls
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in the implementation packages return the interface
// types to enforce abstraction; the mock package returns concrete types so
// tests can inject behavior and assert call counts.
package ai
