/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/patrickmn/go-cache"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// ErrInvalidName is returned for report names that would escape the report
// directory.
var ErrInvalidName = errors.New("invalid report name")

// Store reads and writes the reports of one directory. Parsed reports are
// cached by name and modification time.
type Store struct {
	dir    string
	logger logger.Logger
	cache  *cache.Cache
}

func NewStore(dir string, log logger.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: log,
		cache:  cache.New(cacheTTL, cacheCleanup),
	}
}

// Dir returns the directory the store manages.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return filepath.Join(s.dir, name), nil
}

// Write stores records under name and returns the full path.
func (s *Store) Write(name string, records []models.ResultRecord) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}

	if err := WriteFile(p, records); err != nil {
		return "", err
	}

	s.logger.Info().Str("path", p).Int("records", len(records)).Msg("Report written")

	return p, nil
}

// Read returns the records of the named report.
func (s *Store) Read(name string) ([]models.ResultRecord, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	return s.ReadPath(p)
}

// ReadPath returns the records of the report at p, serving repeated reads of
// an unchanged file from the cache.
func (s *Store) ReadPath(p string) ([]models.ResultRecord, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportIO, err)
	}

	key := p + "@" + strconv.FormatInt(info.ModTime().UnixNano(), 10)

	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug().Str("path", p).Msg("Report served from cache")

		return slices.Clone(cached.([]models.ResultRecord)), nil
	}

	records, err := ReadFile(p)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(key, records)

	return slices.Clone(records), nil
}

// List returns the report names starting with prefix, newest name first.
func (s *Store) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrReportIO, err)
	}

	var names []string

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), Extension) || strings.HasPrefix(name, ".") {
			continue
		}

		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}

	slices.Sort(names)
	slices.Reverse(names)

	return names, nil
}

// LatestScheduled returns the path and name of the most recently modified
// scheduled report in the store's directory. ok is false when there is none.
func (s *Store) LatestScheduled() (path, name string, ok bool, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", false, nil
		}

		return "", "", false, fmt.Errorf("%w: %w", ErrReportIO, err)
	}

	var newest time.Time

	for _, e := range entries {
		if e.IsDir() || !IsScheduled(e.Name()) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		if !ok || info.ModTime().After(newest) {
			name, newest, ok = e.Name(), info.ModTime(), true
		}
	}

	if !ok {
		return "", "", false, nil
	}

	return filepath.Join(s.dir, name), name, true, nil
}
