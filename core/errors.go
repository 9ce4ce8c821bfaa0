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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidSourceFile indicates a SourceFile failed validation.
	ErrInvalidSourceFile = errors.New("invalid source file")

	// ErrInvalidChapterMap indicates a ChapterMap failed validation.
	ErrInvalidChapterMap = errors.New("invalid chapter map")

	// ErrInvalidCoverage indicates an ExamCoverage failed validation.
	ErrInvalidCoverage = errors.New("invalid exam coverage")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidPageRange indicates a page range is not 1-indexed or is inverted.
	ErrInvalidPageRange = errors.New("invalid page range")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrEmptyFileID indicates the FileID field is empty.
	ErrEmptyFileID = errors.New("file id cannot be empty")
)
