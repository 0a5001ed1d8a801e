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

package share

import (
	"context"
	"io/fs"
	"path"
	"strings"
	"time"
)

// LatestDir descends from root, at each level entering the most recently
// modified subdirectory, and returns the deepest one reached. A root without
// subdirectories is returned as is.
func LatestDir(ctx context.Context, fsys fs.FS, root string) (string, error) {
	current := root

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		entries, err := fs.ReadDir(fsys, current)
		if err != nil {
			return "", err
		}

		var (
			next    string
			newest  time.Time
			hasNext bool
		)

		for _, e := range entries {
			if !e.IsDir() {
				continue
			}

			info, err := e.Info()
			if err != nil {
				continue
			}

			if !hasNext || info.ModTime().After(newest) {
				next = path.Join(current, e.Name())
				newest = info.ModTime()
				hasNext = true
			}
		}

		if !hasNext {
			return current, nil
		}

		current = next
	}
}

// HasTodayFile reports whether dir holds a file whose name carries today's
// date, as yyyy-MM-dd or yyyyMMdd, or whose modification date is today.
func HasTodayFile(fsys fs.FS, dir string, now time.Time) (bool, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return false, err
	}

	dashed := now.Format(time.DateOnly)
	compact := now.Format("20060102")
	y, m, d := now.Date()

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		if strings.Contains(name, dashed) || strings.Contains(name, compact) {
			return true, nil
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		my, mm, md := info.ModTime().In(now.Location()).Date()
		if my == y && mm == m && md == d {
			return true, nil
		}
	}

	return false, nil
}

// CheckDailyLog combines LatestDir and HasTodayFile over a mounted share.
func CheckDailyLog(ctx context.Context, fsys fs.FS, now time.Time) (bool, error) {
	dir, err := LatestDir(ctx, fsys, ".")
	if err != nil {
		return false, err
	}

	return HasTodayFile(fsys, dir, now)
}
