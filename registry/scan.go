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


package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// hashBufSize is the read granularity when hashing file content.
const hashBufSize = 8192

// DefaultExtensions are the file extensions included in a scan when the
// caller does not supply its own set.
var DefaultExtensions = []string{".pdf", ".txt", ".md"}

// ScannedFile is one file observed in the uploads root during a scan.
type ScannedFile struct {
	Path         string // relative to the uploads root, slash-separated
	Filename     string
	SHA256       string
	SizeBytes    int64
	ModifiedTime float64
}

// Scan walks the uploads root recursively and returns every matching file
// with its content hash. A missing root is treated as an empty directory.
// Results are sorted by relative path so scans are deterministic.
func Scan(root string, extensions []string) ([]ScannedFile, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var files []ScannedFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			// Skip hidden directories like .git or editor state.
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		sum, err := hashFile(path)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, ScannedFile{
			Path:         filepath.ToSlash(rel),
			Filename:     d.Name(),
			SHA256:       sum,
			SizeBytes:    info.Size(),
			ModifiedTime: float64(info.ModTime().UnixNano()) / 1e9,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// hashFile computes the hex-encoded SHA-256 of a file's content, reading in
// fixed-size blocks so large documents never load fully into memory.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
