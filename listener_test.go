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
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-dwin/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollN polls up to n times and returns the first valid event
func pollN(t *testing.T, d *Device, n int) (Event, int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		event, err := d.PollEvent()
		require.NoError(t, err)
		if event.Valid {
			return event, i
		}
	}
	return Event{}, n
}

func TestPollEvent_NothingBuffered(t *testing.T) {
	t.Parallel()

	device, _, _ := newTestDevice(t)

	event, err := device.PollEvent()
	require.NoError(t, err)
	assert.False(t, event.Valid)
	assert.Equal(t, Event{}, event)
}

func TestPollEvent_SyncByteConsumesOneByte(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)
	frame := testutil.BuildNotification(0x1000, 0x05)
	mock.Feed(frame...)

	event, err := device.PollEvent()
	require.NoError(t, err)
	assert.False(t, event.Valid)
	assert.Equal(t, len(frame)-1, mock.Pending())
	assert.Equal(t, stateAwaitingLength, device.decoder.state)

	event, err = device.PollEvent()
	require.NoError(t, err)
	assert.False(t, event.Valid)
	assert.Equal(t, len(frame)-2, mock.Pending())

	event, err = device.PollEvent()
	require.NoError(t, err)
	require.True(t, event.Valid)
	assert.Zero(t, mock.Pending())
	assert.Equal(t, stateIdle, device.decoder.state)
}

func TestPollEvent_Decode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  Event
	}{
		{
			name:  "typical_notification",
			input: []byte{0x5A, 0xA5, 0x06, 0x83, 0x10, 0x00, 0x01, 0x00, 0x05},
			want: Event{
				Valid: true, Length: 6, Command: 0x83,
				StartAddr: 0x10, EndAddr: 0x00, DataVal: 0x05,
				Reserved: []byte{0x01, 0x00},
			},
		},
		{
			name:  "without_sync",
			input: []byte{0x04, 0x83, 0x12, 0x34, 0x2A},
			want: Event{
				Valid: true, Length: 4, Command: 0x83,
				StartAddr: 0x12, EndAddr: 0x34, DataVal: 0x2A,
			},
		},
		{
			name:  "zero_length_is_noise",
			input: []byte{0x00, 0x04, 0x83, 0x12, 0x34, 0x2A},
			want: Event{
				Valid: true, Length: 4, Command: 0x83,
				StartAddr: 0x12, EndAddr: 0x34, DataVal: 0x2A,
			},
		},
		{
			name:  "long_body_keeps_reserved",
			input: []byte{0x5A, 0xA5, 0x08, 0x83, 0x20, 0x00, 0x02, 0x41, 0x42, 0x43, 0x44},
			want: Event{
				Valid: true, Length: 8, Command: 0x83,
				StartAddr: 0x20, EndAddr: 0x00, DataVal: 0x44,
				Reserved: []byte{0x02, 0x41, 0x42, 0x43},
			},
		},
		{
			name:  "single_byte_body",
			input: []byte{0x01, 0x07},
			want:  Event{Valid: true, Length: 1, Command: 0x07, DataVal: 0x07},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			device, mock, _ := newTestDevice(t)
			mock.Feed(tt.input...)

			event, _ := pollN(t, device, 10)
			assert.Equal(t, tt.want, event)
			assert.Zero(t, mock.Pending())
		})
	}
}

func TestPollEvent_Address(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)
	mock.Feed(testutil.BuildNotification(0x1234, 0x2A)...)

	event, _ := pollN(t, device, 5)
	require.True(t, event.Valid)
	assert.Equal(t, Address(0x1234), event.Address())
	assert.Equal(t, byte(0x2A), event.DataVal)
}

func TestPollEvent_ResumesAcrossPolls(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)
	mock.Feed(0x06, 0x83, 0x10)

	event, err := device.PollEvent()
	require.NoError(t, err)
	assert.False(t, event.Valid)
	assert.Equal(t, stateCollectingPayload, device.decoder.state)

	mock.Feed(0x00, 0x01, 0x00, 0x05)
	event, err = device.PollEvent()
	require.NoError(t, err)
	require.True(t, event.Valid)
	assert.Equal(t, Address(0x1000), event.Address())
	assert.Equal(t, byte(0x05), event.DataVal)
}

func TestPollEvent_StopsAtFrameEnd(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)
	first := testutil.BuildNotification(0x1000, 0x01)
	second := testutil.BuildNotification(0x1002, 0x02)
	mock.Feed(append(first, second...)...)

	event, _ := pollN(t, device, 5)
	require.True(t, event.Valid)
	assert.Equal(t, Address(0x1000), event.Address())
	assert.Equal(t, len(second), mock.Pending())

	event, _ = pollN(t, device, 5)
	require.True(t, event.Valid)
	assert.Equal(t, Address(0x1002), event.Address())
}

func TestPollEvent_FrameTimeout(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t, WithFrameTimeout(50*time.Millisecond))
	now := time.Unix(1000, 0)
	device.decoder.now = func() time.Time { return now }

	mock.Feed(0x06, 0x83, 0x10)
	event, err := device.PollEvent()
	require.NoError(t, err)
	assert.False(t, event.Valid)

	now = now.Add(20 * time.Millisecond)
	_, err = device.PollEvent()
	require.NoError(t, err, "partial frame within the timeout is kept")

	now = now.Add(40 * time.Millisecond)
	event, err = device.PollEvent()
	assert.False(t, event.Valid)

	var timeoutErr *FrameTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.ErrorIs(t, err, ErrFrameTimeout)
	assert.Equal(t, 6, timeoutErr.Length)
	assert.Equal(t, 2, timeoutErr.Received)
	assert.Equal(t, []byte{0x83, 0x10}, timeoutErr.Partial)
	assert.Equal(t, 60*time.Millisecond, timeoutErr.Elapsed)
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
	assert.Equal(t, stateIdle, device.decoder.state)

	mock.Feed(0x04, 0x83, 0x12, 0x34, 0x2A)
	event, _ = pollN(t, device, 3)
	require.True(t, event.Valid)
	assert.Equal(t, Address(0x1234), event.Address())
}

func TestPollEvent_StaleSyncReturnsToIdle(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t, WithFrameTimeout(50*time.Millisecond))
	now := time.Unix(1000, 0)
	device.decoder.now = func() time.Time { return now }

	mock.Feed(0x5A)
	_, err := device.PollEvent()
	require.NoError(t, err)
	assert.Equal(t, stateAwaitingLength, device.decoder.state)

	now = now.Add(30 * time.Millisecond)
	_, err = device.PollEvent()
	require.NoError(t, err)
	assert.Equal(t, stateAwaitingLength, device.decoder.state, "sync byte within the timeout is kept")

	now = now.Add(30 * time.Millisecond)
	event, err := device.PollEvent()
	require.NoError(t, err, "a lone sync byte is not a frame timeout")
	assert.False(t, event.Valid)
	assert.Equal(t, stateIdle, device.decoder.state)
	assert.True(t, device.decoder.started.IsZero())
}

func TestPollEvent_LengthAfterSyncStartsFrameClock(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t, WithFrameTimeout(50*time.Millisecond))
	now := time.Unix(1000, 0)
	device.decoder.now = func() time.Time { return now }

	mock.Feed(0xA5)
	_, err := device.PollEvent()
	require.NoError(t, err)

	// the length arrives late but the payload is timed from the length byte
	now = now.Add(40 * time.Millisecond)
	mock.Feed(0x04, 0x83)
	_, err = device.PollEvent()
	require.NoError(t, err)
	assert.Equal(t, stateCollectingPayload, device.decoder.state)

	now = now.Add(40 * time.Millisecond)
	mock.Feed(0x12, 0x34, 0x2A)
	event, err := device.PollEvent()
	require.NoError(t, err)
	require.True(t, event.Valid)
	assert.Equal(t, Address(0x1234), event.Address())
}

func TestPollEvent_TransportError(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)
	require.NoError(t, mock.Close())

	_, err := device.PollEvent()
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "available", te.Op)
}

func TestListenContext(t *testing.T) {
	t.Parallel()

	t.Run("returns_event", func(t *testing.T) {
		t.Parallel()
		device, mock, _ := newTestDevice(t)
		mock.FeedAfter(10*time.Millisecond, testutil.BuildNotification(0x5000, 0x09)...)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		event, err := device.ListenContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, Address(0x5000), event.Address())
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		device, _, _ := newTestDevice(t)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := device.ListenContext(ctx)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestEvent_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Event{}", Event{}.String())
	event := Event{Valid: true, Command: 0x83, StartAddr: 0x10, EndAddr: 0x02, DataVal: 0x07, Length: 6}
	assert.Equal(t, "Event{cmd=0x83 addr=0x1002 data=0x07 len=6}", event.String())
}
