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
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"sync"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/hirochachacha/go-smb2"
)

const smbPort = "445"

var (
	ErrInvalidSharePath = errors.New("share path must look like \\\\host\\share[\\dir]")
	errNotMounted       = errors.New("share not mounted")
)

// UNC is a parsed \\host\share\dir path.
type UNC struct {
	Host  string
	Share string
	Dir   string
}

// ParseUNC accepts backslash or forward-slash separated share paths.
func ParseUNC(p string) (UNC, error) {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimLeft(p, "/")

	parts := strings.Split(p, "/")

	var clean []string

	for _, part := range parts {
		if part != "" {
			clean = append(clean, part)
		}
	}

	if len(clean) < 2 {
		return UNC{}, fmt.Errorf("%w: %q", ErrInvalidSharePath, p)
	}

	u := UNC{Host: clean[0], Share: clean[1], Dir: "."}
	if len(clean) > 2 {
		u.Dir = strings.Join(clean[2:], "/")
	}

	return u, nil
}

type smbMount struct {
	conn    net.Conn
	session *smb2.Session
	share   *smb2.Share
}

// SMBMounter mounts shares with a pure-Go SMB2/3 client. Each Mount opens
// its own session; Unmount tears the whole session down.
type SMBMounter struct {
	Domain string

	logger logger.Logger

	mu     sync.Mutex
	mounts map[string]*smbMount
}

var _ Mounter = (*SMBMounter)(nil)

func NewSMBMounter(domain string, log logger.Logger) *SMBMounter {
	return &SMBMounter{
		Domain: domain,
		logger: log,
		mounts: make(map[string]*smbMount),
	}
}

func (m *SMBMounter) Mount(ctx context.Context, sharePath, user, password string) (fs.FS, error) {
	unc, err := ParseUNC(sharePath)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(unc.Host, smbPort))
	if err != nil {
		return nil, err
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     user,
			Password: password,
			Domain:   m.Domain,
		},
	}

	session, err := d.DialContext(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	share, err := session.Mount(fmt.Sprintf(`\\%s\%s`, unc.Host, unc.Share))
	if err != nil {
		_ = session.Logoff()
		_ = conn.Close()

		return nil, err
	}

	share = share.WithContext(ctx)

	if _, err := share.Stat(unc.Dir); err != nil {
		_ = share.Umount()
		_ = session.Logoff()
		_ = conn.Close()

		return nil, err
	}

	mnt := &smbMount{conn: conn, session: session, share: share}

	m.mu.Lock()
	if prev, ok := m.mounts[sharePath]; ok {
		prev.close()
	}
	m.mounts[sharePath] = mnt
	m.mu.Unlock()

	return share.DirFS(unc.Dir), nil
}

func (m *SMBMounter) Unmount(sharePath string) error {
	m.mu.Lock()
	mnt, ok := m.mounts[sharePath]
	delete(m.mounts, sharePath)
	m.mu.Unlock()

	if !ok {
		return errNotMounted
	}

	return mnt.close()
}

func (s *smbMount) close() error {
	var errs []error

	if err := s.share.Umount(); err != nil {
		errs = append(errs, err)
	}

	if err := s.session.Logoff(); err != nil {
		errs = append(errs, err)
	}

	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Classify maps SMB response statuses and transport failures.
func (*SMBMounter) Classify(err error) models.ConnectionOutcome {
	var respErr *smb2.ResponseError
	if errors.As(err, &respErr) {
		return ClassifyNTStatus(respErr.Code)
	}

	if errors.Is(err, fs.ErrNotExist) {
		return models.AccessFailure(models.ConnectionPathNotFound, models.PromptLogPathChanged)
	}

	if errors.Is(err, fs.ErrPermission) {
		return models.AccessFailure(models.ConnectionPermissionDenied, models.PromptPermissionDenied)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.ConnectionOutcome{
				Status:  models.ConnectionFailure,
				Profile: models.PromptConnectionTimedOut,
				Message: models.PromptNetworkError,
			}
		}

		return models.AccessFailure(models.ConnectionNetworkError, models.PromptNetworkError)
	}

	if errors.Is(err, ErrInvalidSharePath) {
		return models.AccessFailure(models.ConnectionPathNotFound, models.PromptNetworkNameNotFound)
	}

	return models.UnknownErrorCause(err)
}
