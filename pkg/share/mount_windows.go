//go:build windows

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
	"io/fs"
	"os"
	"unsafe"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"golang.org/x/sys/windows"
)

var (
	modmpr                     = windows.NewLazySystemDLL("mpr.dll")
	procWNetAddConnection2W    = modmpr.NewProc("WNetAddConnection2W")
	procWNetCancelConnection2W = modmpr.NewProc("WNetCancelConnection2W")
)

const (
	resourceScopeGlobalNet   = 2
	resourceTypeDisk         = 1
	resourceDisplayTypeShare = 3
)

// netResource mirrors NETRESOURCEW.
type netResource struct {
	Scope       uint32
	Type        uint32
	DisplayType uint32
	Usage       uint32
	LocalName   *uint16
	RemoteName  *uint16
	Comment     *uint16
	Provider    *uint16
}

// WNetMounter attaches shares through the Windows networking provider, the
// same path Explorer uses, and reads them through the UNC path.
type WNetMounter struct {
	logger logger.Logger
}

var _ Mounter = (*WNetMounter)(nil)

func NewWNetMounter(log logger.Logger) *WNetMounter {
	return &WNetMounter{logger: log}
}

func (*WNetMounter) Mount(_ context.Context, sharePath, user, password string) (fs.FS, error) {
	remote, err := windows.UTF16PtrFromString(sharePath)
	if err != nil {
		return nil, err
	}

	userPtr, err := windows.UTF16PtrFromString(user)
	if err != nil {
		return nil, err
	}

	passPtr, err := windows.UTF16PtrFromString(password)
	if err != nil {
		return nil, err
	}

	nr := netResource{
		Scope:       resourceScopeGlobalNet,
		Type:        resourceTypeDisk,
		DisplayType: resourceDisplayTypeShare,
		RemoteName:  remote,
	}

	// The call blocks in the provider and cannot be cancelled; the prober's
	// watchdog bounds it instead.
	r1, _, _ := procWNetAddConnection2W.Call(
		uintptr(unsafe.Pointer(&nr)),
		uintptr(unsafe.Pointer(passPtr)),
		uintptr(unsafe.Pointer(userPtr)),
		0,
	)
	if r1 != 0 {
		return nil, windows.Errno(r1)
	}

	return os.DirFS(sharePath), nil
}

func (*WNetMounter) Unmount(sharePath string) error {
	name, err := windows.UTF16PtrFromString(sharePath)
	if err != nil {
		return err
	}

	r1, _, _ := procWNetCancelConnection2W.Call(uintptr(unsafe.Pointer(name)), 0, 1)
	if r1 != 0 {
		return windows.Errno(r1)
	}

	return nil
}

func (*WNetMounter) Classify(err error) models.ConnectionOutcome {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return ClassifyWin32(int(errno))
	}

	return models.UnknownErrorCause(err)
}

// NewPlatformMounter returns the native mounter on Windows.
func NewPlatformMounter(log logger.Logger) Mounter {
	return NewWNetMounter(log)
}
