// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package topics validates MQTT topic names and filters and matches one
// against the other.
package topics

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxLength is the longest topic a length-prefixed string can carry.
const MaxLength = 0xFFFF

// Validation errors.
var (
	ErrInvalidTopicName   = errors.New("invalid topic name")
	ErrInvalidTopicFilter = errors.New("invalid topic filter")
)

// ValidateName checks a PUBLISH topic: non-empty, at most MaxLength bytes,
// valid UTF-8, no NUL and no wildcards.
func ValidateName(topic string) error {
	if err := validateString(topic); err != nil {
		return errors.Join(ErrInvalidTopicName, err)
	}
	if strings.ContainsAny(topic, "+#") {
		return errors.Join(ErrInvalidTopicName, errors.New("wildcards are not allowed"))
	}
	return nil
}

// ValidateFilter checks a SUBSCRIBE filter. '+' must fill a whole level
// and '#' must be the whole last level.
func ValidateFilter(filter string) error {
	if err := validateString(filter); err != nil {
		return errors.Join(ErrInvalidTopicFilter, err)
	}
	rest := filter
	for {
		level, tail, more := strings.Cut(rest, "/")
		switch {
		case level == "#" && more:
			return errors.Join(ErrInvalidTopicFilter, errors.New("'#' must be the last level"))
		case level != "+" && level != "#" && strings.ContainsAny(level, "+#"):
			return errors.Join(ErrInvalidTopicFilter, errors.New("wildcards must occupy a whole level"))
		}
		if !more {
			return nil
		}
		rest = tail
	}
}

func validateString(s string) error {
	switch {
	case s == "":
		return errors.New("empty")
	case len(s) > MaxLength:
		return errors.New("longer than 65535 bytes")
	case !utf8.ValidString(s):
		return errors.New("not valid UTF-8")
	case strings.IndexByte(s, 0) >= 0:
		return errors.New("contains NUL")
	}
	return nil
}

// Match reports whether topic is selected by filter. Wildcards in the
// first level never select topics starting with '$'.
func Match(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}
	if filter == topic {
		return true
	}
	if topic[0] == '$' && (filter[0] == '+' || filter[0] == '#') {
		return false
	}

	for {
		f, fRest, fMore := strings.Cut(filter, "/")
		if f == "#" {
			return true
		}
		t, tRest, tMore := strings.Cut(topic, "/")
		if f != "+" && f != t {
			return false
		}
		switch {
		case !fMore && !tMore:
			return true
		case !tMore:
			// "a/#" selects "a".
			return fRest == "#"
		case !fMore:
			return false
		}
		filter, topic = fRest, tRest
	}
}
