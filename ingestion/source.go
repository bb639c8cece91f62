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

package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Source supplies the raw text to ingest.
type Source interface {
	// Fetch returns the full raw text. Failures wrap ErrFetchFailed.
	Fetch(ctx context.Context) (string, error)

	// String names the source for logs.
	String() string
}

// HTTPSource downloads raw text with a GET request.
// Any status other than 200 is a fetch failure.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Fetch retrieves the document body.
func (s *HTTPSource) Fetch(ctx context.Context) (string, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, s.URL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: unexpected status %s", ErrFetchFailed, s.URL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, s.URL, err)
	}
	return string(body), nil
}

func (s *HTTPSource) String() string {
	return s.URL
}

// FileSource reads raw text from a local file.
type FileSource struct {
	Path string
}

// Fetch reads the whole file.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return string(data), nil
}

func (s *FileSource) String() string {
	return s.Path
}

// TextSource serves text already held in memory.
type TextSource struct {
	Name string
	Text string
}

// Fetch returns the text.
func (s *TextSource) Fetch(ctx context.Context) (string, error) {
	return s.Text, nil
}

func (s *TextSource) String() string {
	if s.Name == "" {
		return "text"
	}
	return s.Name
}
