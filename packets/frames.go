// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"errors"

	"github.com/absmach/mqttbench/packets/codec"
)

// SplitFrames cuts buf into complete MQTT frames by decoding each fixed
// header's remaining length. The incomplete tail is returned as rest.
// Frames alias buf.
func SplitFrames(buf []byte) (frames [][]byte, rest []byte, err error) {
	for len(buf) > 0 {
		if len(buf) < 2 {
			break
		}
		rl, n, err := codec.DecodeVBIBytes(buf[1:])
		if errors.Is(err, codec.ErrBufferTooShort) {
			break
		}
		if err != nil {
			return frames, buf, err
		}
		size := 1 + n + rl
		if len(buf) < size {
			break
		}
		frames = append(frames, buf[:size:size])
		buf = buf[size:]
	}
	return frames, buf, nil
}

// FrameBuffer accumulates stream chunks and yields complete frames.
type FrameBuffer struct {
	buf []byte
}

// Write appends chunk and returns the frames it completed. The returned
// frames are owned by the caller.
func (fb *FrameBuffer) Write(chunk []byte) ([][]byte, error) {
	fb.buf = append(fb.buf, chunk...)
	frames, rest, err := SplitFrames(fb.buf)
	if err != nil {
		return nil, err
	}
	fb.buf = append(fb.buf[:0:0], rest...)
	return frames, nil
}

// Buffered returns the number of bytes held back for an incomplete frame.
func (fb *FrameBuffer) Buffered() int {
	return len(fb.buf)
}
