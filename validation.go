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

package dwin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-dwin/internal/frame"
)

// ErrVerificationFailed is returned when a written value did not read back
var ErrVerificationFailed = errors.New("write verification failed")

// validateFieldLength checks a text field length against what fits in one frame
func validateFieldLength(what string, n int) error {
	if n < 1 || n > frame.MaxStringLength {
		return fmt.Errorf("%w: %s length %d outside 1..%d", ErrInvalidParameter, what, n, frame.MaxStringLength)
	}
	return nil
}

// ValidationConfig holds configuration for verified text writes
type ValidationConfig struct {
	// ReadTimeout bounds each read back
	ReadTimeout time.Duration
	// RetryDelay specifies delay between retry attempts
	RetryDelay time.Duration
	// WriteRetries specifies max number of write retries on verification failure
	WriteRetries int
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		ReadTimeout:  500 * time.Millisecond,
		WriteRetries: 3,
		RetryDelay:   50 * time.Millisecond,
	}
}

// ValidationMetrics tracks validation statistics
type ValidationMetrics struct {
	LastValidation    time.Time
	TotalOperations   uint64
	FailedValidations uint64
}

// ValidatedDevice wraps a Device and reads text fields back after writing
type ValidatedDevice struct {
	*Device
	config  *ValidationConfig
	metrics ValidationMetrics
	mu      sync.RWMutex
}

// NewValidatedDevice wraps device with write verification
func NewValidatedDevice(device *Device, config *ValidationConfig) (*ValidatedDevice, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultValidationConfig()
	}
	if config.WriteRetries < 1 {
		return nil, fmt.Errorf("%w: write retries must be at least 1", ErrInvalidParameter)
	}
	return &ValidatedDevice{Device: device, config: config}, nil
}

// GetValidationMetrics returns current validation metrics (thread-safe)
func (vd *ValidatedDevice) GetValidationMetrics() ValidationMetrics {
	vd.mu.RLock()
	defer vd.mu.RUnlock()
	return vd.metrics
}

func (vd *ValidatedDevice) recordValidation(success bool) {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	vd.metrics.TotalOperations++
	vd.metrics.LastValidation = time.Now()
	if !success {
		vd.metrics.FailedValidations++
	}
}

// WriteStringVerified writes a text field and reads it back until the
// display reports the expected content
func (vd *ValidatedDevice) WriteStringVerified(addr Address, text string, maxLen int) error {
	return vd.WriteStringVerifiedContext(context.Background(), addr, text, maxLen)
}

// WriteStringVerifiedContext is WriteStringVerified with context support.
// A *TruncationWarning from the write is kept and returned once the
// truncated text has been verified.
func (vd *ValidatedDevice) WriteStringVerifiedContext(ctx context.Context, addr Address, text string, maxLen int) error {
	expected := text
	if len(expected) > maxLen {
		expected = expected[:maxLen]
	}

	var lastErr error
	for attempt := 1; attempt <= vd.config.WriteRetries; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, vd.config.RetryDelay); err != nil {
				return fmt.Errorf("verified write cancelled: %w", err)
			}
		}

		writeErr := vd.WriteStringContext(ctx, addr, text, maxLen)
		var warning *TruncationWarning
		if writeErr != nil && !errors.As(writeErr, &warning) {
			lastErr = writeErr
			continue
		}

		got, err := vd.ReadTextContext(ctx, addr, maxLen, vd.config.ReadTimeout)
		if err != nil {
			lastErr = err
			vd.recordValidation(false)
			continue
		}
		if got != expected {
			lastErr = fmt.Errorf("%w: %s read back %q, want %q", ErrVerificationFailed, addr, got, expected)
			vd.recordValidation(false)
			debugf("verify attempt %d: %v", attempt, lastErr)
			continue
		}

		vd.recordValidation(true)
		return writeErr
	}
	return fmt.Errorf("text write at %s failed after %d attempts: %w", addr, vd.config.WriteRetries, lastErr)
}
