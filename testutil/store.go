// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package testutil

import "sync"

// Message represents a PUBLISH seen by the test broker.
type Message struct {
	ClientID string
	Topic    string
	Payload  []byte
}

// MessageStore interface for storing received messages.
type MessageStore interface {
	Store(msg *Message)
	Get(topic string) []*Message
	GetAll() []*Message
	Clear()
	Count() int
}

// InMemoryStore is a simple in-memory message store.
type InMemoryStore struct {
	messages []*Message
	mu       sync.RWMutex
}

// NewInMemoryStore creates a new in-memory message store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		messages: make([]*Message, 0),
	}
}

// Store adds a message to the store.
func (s *InMemoryStore) Store(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Get returns all messages for a topic.
func (s *InMemoryStore) Get(topic string) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Message
	for _, msg := range s.messages {
		if msg.Topic == topic {
			result = append(result, msg)
		}
	}
	return result
}

// GetAll returns all stored messages.
func (s *InMemoryStore) GetAll() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Message, len(s.messages))
	copy(result, s.messages)
	return result
}

// Clear removes all messages from the store.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
}

// Count returns the number of stored messages.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
