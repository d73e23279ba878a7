// go-dwin
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-dwin.
//
// go-dwin is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-dwin is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-dwin; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package detection finds displays attached to the host
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrDetectionTimeout    = errors.New("detection timed out")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// Mode controls how intrusive detection may be
type Mode int

const (
	// Passive only looks at port metadata and never opens a port
	Passive Mode = iota
	// Safe opens candidate ports and sends a single read request
	Safe
)

func (m Mode) String() string {
	if m == Safe {
		return "safe"
	}
	return "passive"
}

// Confidence rates how likely a candidate is a display
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// DeviceInfo describes a detected candidate
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s:%s (%s, %s confidence)", d.Transport, d.Path, d.Name, d.Confidence)
}

// Options configures detection
type Options struct {
	// Blocklist holds VID:PID pairs that are never probed
	Blocklist []string
	// IgnorePaths holds device paths that are skipped entirely
	IgnorePaths []string
	// Timeout bounds the whole detection run
	Timeout time.Duration
	// ProbeTimeout bounds the read request sent to each port in Safe mode
	ProbeTimeout time.Duration
	// BaudRate is used when probing
	BaudRate int
	Mode     Mode
}

// DefaultOptions returns passive detection with the default blocklist
func DefaultOptions() Options {
	return Options{
		Mode:         Passive,
		Timeout:      5 * time.Second,
		ProbeTimeout: 300 * time.Millisecond,
		BaudRate:     115200,
		Blocklist:    DefaultBlocklist(),
	}
}

// Detector finds devices on one kind of transport
type Detector interface {
	// Transport returns the transport name, such as "uart"
	Transport() string
	// Detect returns the candidates found on this transport
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	detectors  = make(map[string]Detector)
)

// RegisterDetector adds a detector to the registry. Registering the same
// transport again replaces the earlier detector.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	detectors[d.Transport()] = d
}

// UnregisterDetector removes the detector for transport
func UnregisterDetector(transport string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(detectors, transport)
}

// Detectors returns the registered detectors sorted by transport name
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector and returns the
// candidates ordered by confidence, best first. Errors of single detectors
// are ignored as long as one of them finds something.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range Detectors() {
		if ctx.Err() != nil {
			if len(devices) > 0 {
				break
			}
			return nil, ErrDetectionTimeout
		}

		found, err := d.Detect(ctx, opts)
		devices = append(devices, found...)
		if err != nil && !errors.Is(err, ErrNoDevicesFound) && !errors.Is(err, ErrUnsupportedPlatform) {
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrNoDevicesFound, errors.Join(errs...))
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}
