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

package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-dwin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permission denied")

	tests := []struct {
		err        error
		name       string
		succeedAt  int
		maxRetries int
		wantCalls  int
		wantErr    bool
	}{
		{name: "immediate", succeedAt: 1, maxRetries: 3, wantCalls: 1},
		{name: "after_retries", succeedAt: 3, maxRetries: 3, wantCalls: 3},
		{name: "exhausted", succeedAt: 10, maxRetries: 2, wantCalls: 3, wantErr: true},
		{name: "permanent", err: permanent, maxRetries: 3, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			retries := 0
			got, err := WithRetry(RetryConfig{
				Description: "test",
				MaxRetries:  tt.maxRetries,
				RetryDelay:  time.Millisecond,
				OnRetry: func() error {
					retries++
					return nil
				},
			}, func() (string, bool, error) {
				calls++
				if tt.err != nil {
					return "", false, tt.err
				}
				if calls < tt.succeedAt {
					return "", true, nil
				}
				return "ok", false, nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, calls-1, retries)
		})
	}
}

func TestWithRetry_ExhaustedError(t *testing.T) {
	t.Parallel()

	_, err := WithRetry(RetryConfig{Description: "/dev/ttyS0", MaxRetries: 1}, func() (int, bool, error) {
		return 0, true, nil
	})
	require.ErrorIs(t, err, dwin.ErrRetriesExhausted)

	custom := errors.New("still busy")
	_, err = WithRetry(RetryConfig{
		MaxRetries:    1,
		OnRetryFailed: func() error { return custom },
	}, func() (int, bool, error) {
		return 0, true, nil
	})
	require.ErrorIs(t, err, custom)
}

func TestWithRetry_OnRetryAborts(t *testing.T) {
	t.Parallel()

	abort := errors.New("abort")
	calls := 0
	_, err := WithRetry(RetryConfig{
		MaxRetries: 5,
		OnRetry:    func() error { return abort },
	}, func() (int, bool, error) {
		calls++
		return 0, true, nil
	})
	require.ErrorIs(t, err, abort)
	assert.Equal(t, 1, calls)
}

func TestTimeoutRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := TimeoutRetry(time.Second, time.Millisecond, func() (byte, bool, error) {
		calls++
		return 0x5A, calls < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, byte(0x5A), got)
	assert.Equal(t, 3, calls)
}

func TestTimeoutRetry_Timeout(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := TimeoutRetry(20*time.Millisecond, time.Millisecond, func() (byte, bool, error) {
		return 0, true, nil
	})
	require.ErrorIs(t, err, dwin.ErrTransportTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, dwin.ErrorTypeTimeout, dwin.GetErrorType(err))
}

func TestTimeoutRetry_ChecksOnceWithZeroTimeout(t *testing.T) {
	t.Parallel()

	got, err := TimeoutRetry(0, time.Millisecond, func() (int, bool, error) {
		return 7, false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
