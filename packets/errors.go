// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation is matched by every *ProtocolError.
var ErrProtocolViolation = errors.New("protocol violation")

// Violation reasons.
const (
	ReasonLength          = "length"
	ReasonHeader          = "header"
	ReasonRemainingLength = "remaining length"
	ReasonReturnCode      = "return code"
	ReasonMessageID       = "message id"
	ReasonGrantedQoS      = "granted qos"
	ReasonPayload         = "payload"
)

// ProtocolError describes a received unit that does not match
// the encoding the harness expects.
type ProtocolError struct {
	Packet   string
	Reason   string
	Detail   string
	Expected []byte
	Got      []byte
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("unexpected %s: %s mismatch", e.Packet, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Expected != nil {
		msg += fmt.Sprintf(": expected % x, got % x", e.Expected, e.Got)
	}
	return msg
}

// Unwrap lets errors.Is match ErrProtocolViolation.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocolViolation
}
