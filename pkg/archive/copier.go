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

// Package archive copies device log files from their shares to the central
// archive on the copy cycle.
package archive

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/autopatrol/pkg/hashutil"
	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/carverauto/autopatrol/pkg/share"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps how many shares are copied from at once.
const DefaultConcurrency = 4

var (
	ErrCopyFailed  = errors.New("copy tasks failed")
	ErrInvalidTask = errors.New("invalid copy task")
)

// Status is the result of one copy task.
type Status string

const (
	StatusCopied    Status = "copied"
	StatusUnchanged Status = "unchanged"
	StatusMissing   Status = "missing"
	StatusFailed    Status = "failed"
)

// TaskSource supplies the copy tasks for a run.
type TaskSource interface {
	CopyTasks(ctx context.Context) ([]models.CopyTask, error)
}

// Result summarizes a copy run. Details holds the status or error of every
// task keyed by its source file.
type Result struct {
	Total    int
	Counts   map[Status]int
	Details  map[string]string
	Duration time.Duration
}

func (r *Result) record(source string, st Status, detail string) {
	r.Counts[st]++

	if detail == "" {
		detail = string(st)
	}

	r.Details[source] = detail
}

// Copier runs the copy tasks against the platform share mounter.
type Copier struct {
	mounter share.Mounter
	tasks   TaskSource
	limit   int
	logger  logger.Logger
}

func NewCopier(m share.Mounter, tasks TaskSource, limit int, log logger.Logger) *Copier {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	return &Copier{mounter: m, tasks: tasks, limit: limit, logger: log}
}

// group is the set of tasks served by one mount.
type group struct {
	mountPath string
	user      string
	password  string
	files     []fileTask
}

type fileTask struct {
	source string
	name   string
	target string
}

// Run copies every configured file and fails if any task failed. It is the
// scheduler's copy job.
func (c *Copier) Run(ctx context.Context) error {
	res, err := c.CopyAll(ctx)
	if err != nil {
		return err
	}

	if n := res.Counts[StatusFailed]; n > 0 {
		return fmt.Errorf("%w: %d of %d", ErrCopyFailed, n, res.Total)
	}

	return nil
}

// CopyAll loads the tasks and copies each source file to its target. Tasks
// sharing a directory on the same share are served by a single mount.
func (c *Copier) CopyAll(ctx context.Context) (*Result, error) {
	start := time.Now()

	tasks, err := c.tasks.CopyTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load copy tasks: %w", err)
	}

	res := &Result{
		Total:   len(tasks),
		Counts:  make(map[Status]int),
		Details: make(map[string]string),
	}

	groups := c.plan(tasks, res)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(c.limit)

	for _, grp := range groups {
		g.Go(func() error {
			c.copyGroup(ctx, grp, func(source string, st Status, detail string) {
				mu.Lock()
				res.record(source, st, detail)
				mu.Unlock()
			})

			return nil
		})
	}

	_ = g.Wait()

	res.Duration = time.Since(start)

	c.logger.Info().
		Int("tasks", res.Total).
		Int("copied", res.Counts[StatusCopied]).
		Int("unchanged", res.Counts[StatusUnchanged]).
		Int("missing", res.Counts[StatusMissing]).
		Int("failed", res.Counts[StatusFailed]).
		Dur("elapsed", res.Duration).
		Msg("Copy run complete")

	return res, nil
}

func (c *Copier) plan(tasks []models.CopyTask, res *Result) []*group {
	byMount := make(map[string]*group)

	var order []*group

	for i := range tasks {
		t := &tasks[i]

		mountPath, name, err := splitSource(t.SourceFile)
		if err == nil && t.TargetFile == "" {
			err = fmt.Errorf("%w: empty target for %s", ErrInvalidTask, t.SourceFile)
		}

		if err != nil {
			c.logger.Warn().Err(err).Str("line", t.Line).Str("code", t.Code).Msg("Skipping copy task")
			res.record(t.SourceFile, StatusFailed, err.Error())

			continue
		}

		user, password := t.Credentials()
		key := mountPath + "\x00" + user

		grp, ok := byMount[key]
		if !ok {
			grp = &group{mountPath: mountPath, user: user, password: password}
			byMount[key] = grp
			order = append(order, grp)
		}

		grp.files = append(grp.files, fileTask{source: t.SourceFile, name: name, target: t.TargetFile})
	}

	return order
}

// splitSource turns \\host\share\dir\file into the share directory to mount
// and the file name inside it.
func splitSource(source string) (mountPath, name string, err error) {
	unc, err := share.ParseUNC(source)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	if unc.Dir == "." {
		return "", "", fmt.Errorf("%w: %s names a share, not a file", ErrInvalidTask, source)
	}

	dir, name := path.Split(unc.Dir)

	mountPath = `\\` + unc.Host + `\` + unc.Share
	if dir = path.Clean(dir); dir != "." {
		mountPath += `\` + strings.ReplaceAll(dir, "/", `\`)
	}

	return mountPath, name, nil
}

func (c *Copier) copyGroup(ctx context.Context, grp *group, record func(string, Status, string)) {
	fsys, err := c.mounter.Mount(ctx, grp.mountPath, grp.user, grp.password)
	if err != nil {
		outcome := c.mounter.Classify(err)

		c.logger.Error().Err(err).Str("path", grp.mountPath).Str("cause", outcome.Message).Msg("Failed to mount copy source")

		for _, f := range grp.files {
			record(f.source, StatusFailed, fmt.Sprintf("mount %s: %s", grp.mountPath, outcome.Message))
		}

		return
	}

	defer func() {
		if err := c.mounter.Unmount(grp.mountPath); err != nil {
			c.logger.Warn().Err(err).Str("path", grp.mountPath).Msg("Failed to unmount copy source")
		}
	}()

	for _, f := range grp.files {
		if ctx.Err() != nil {
			record(f.source, StatusFailed, ctx.Err().Error())
			continue
		}

		st, n, err := CopyFile(fsys, f.name, f.target)
		if err != nil {
			c.logger.Error().Err(err).Str("source", f.source).Str("target", f.target).Msg("Copy failed")
			record(f.source, StatusFailed, err.Error())

			continue
		}

		c.logger.Debug().Str("source", f.source).Str("status", string(st)).Int64("bytes", n).Msg("Copy task done")
		record(f.source, st, "")
	}
}

// CopyFile copies name from fsys to target. A missing source is not an
// error. The target is replaced atomically and only when its content
// differs from the source.
func CopyFile(fsys fs.FS, name, target string) (Status, int64, error) {
	src, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return StatusMissing, 0, nil
	}

	if err != nil {
		return StatusFailed, 0, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	dir := filepath.Dir(target)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StatusFailed, 0, fmt.Errorf("create target directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".copy-*")
	if err != nil {
		return StatusFailed, 0, fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	hasher := sha256.New()

	n, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return StatusFailed, n, fmt.Errorf("copy %s: %w", name, err)
	}

	if prev, err := hashutil.File(target); err == nil && prev == hashutil.Sum(hasher) {
		return StatusUnchanged, n, nil
	}

	if err := os.Rename(tmpName, target); err != nil {
		return StatusFailed, n, fmt.Errorf("replace target: %w", err)
	}

	return StatusCopied, n, nil
}
