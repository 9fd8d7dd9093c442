package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientStorage defines the interface for storing and retrieving registered clients
type ClientStorage interface {
	// StoreClient stores a registered client
	StoreClient(client *ClientRegistration) error

	// GetClient retrieves a client by client ID
	GetClient(clientID string) (*ClientRegistration, error)

	// ListClients returns all registered clients
	ListClients() ([]*ClientRegistration, error)
}

// InMemoryClientStorage provides an in-memory implementation of ClientStorage.
// Registrations live for the process lifetime and are never mutated after
// creation, so reads only need the shared lock.
type InMemoryClientStorage struct {
	mu      sync.RWMutex
	clients map[string]*ClientRegistration
}

// NewInMemoryClientStorage creates a new in-memory client storage
func NewInMemoryClientStorage() *InMemoryClientStorage {
	return &InMemoryClientStorage{
		clients: make(map[string]*ClientRegistration),
	}
}

// StoreClient stores a registered client
func (s *InMemoryClientStorage) StoreClient(client *ClientRegistration) error {
	if client == nil {
		return fmt.Errorf("client cannot be nil")
	}
	if client.ClientID == "" {
		return fmt.Errorf("client ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *client
	s.clients[client.ClientID] = &stored

	return nil
}

// GetClient retrieves a client by client ID
func (s *InMemoryClientStorage) GetClient(clientID string) (*ClientRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, exists := s.clients[clientID]
	if !exists {
		return nil, fmt.Errorf("client not found: %s", clientID)
	}

	clientCopy := *client
	return &clientCopy, nil
}

// ListClients returns all registered clients
func (s *InMemoryClientStorage) ListClients() ([]*ClientRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]*ClientRegistration, 0, len(s.clients))
	for _, client := range s.clients {
		clientCopy := *client
		clients = append(clients, &clientCopy)
	}

	return clients, nil
}

// GenerateClientID generates an opaque client identifier. A random UUID
// carries 122 bits of entropy.
func GenerateClientID() string {
	return uuid.NewString()
}

// AuthTransaction holds the state of a pending authorization request while
// the user is at the IdP. Keyed by ProxyState.
type AuthTransaction struct {
	ProxyState          string
	ClientID            string
	ClientRedirectURI   string
	ClientState         string
	ClientCodeChallenge string
	ClientCodeMethod    string
	ProxyCodeVerifier   string
	RequestedScope      string
	CreatedAt           time.Time
}

// AuthorizationCodeRecord is a one-shot proxy code redeemable at the token
// endpoint. Keyed by ProxyCode.
type AuthorizationCodeRecord struct {
	ProxyCode           string
	AccessToken         string
	RefreshToken        string
	ExpiresIn           int
	Scope               string
	ClientCodeChallenge string
	ClientCodeMethod    string
	CreatedAt           time.Time
}

const (
	// TransactionTTL bounds how long the user may spend at the IdP.
	TransactionTTL = 10 * time.Minute

	// CodeTTL bounds how long a proxy code stays redeemable.
	CodeTTL = 5 * time.Minute

	// SweepInterval is how often expired entries are reclaimed.
	SweepInterval = 5 * time.Minute
)

// FlowStore holds pending transactions and issued proxy codes. Consume
// operations are atomic lookup-then-delete under the write lock so a key
// can only ever be redeemed once.
type FlowStore struct {
	mu           sync.Mutex
	transactions map[string]*AuthTransaction
	codes        map[string]*AuthorizationCodeRecord
	now          func() time.Time
}

// NewFlowStore creates a new flow store
func NewFlowStore() *FlowStore {
	return &FlowStore{
		transactions: make(map[string]*AuthTransaction),
		codes:        make(map[string]*AuthorizationCodeRecord),
		now:          time.Now,
	}
}

// StoreTransaction saves a pending authorization transaction
func (s *FlowStore) StoreTransaction(txn *AuthTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[txn.ProxyState] = txn
}

// ConsumeTransaction removes and returns the transaction for the given
// state. Returns false when the state is unknown, already consumed, or
// older than TransactionTTL. Expired entries are deleted on read so a
// stale state cannot be replayed before the sweeper runs.
func (s *FlowStore) ConsumeTransaction(state string) (*AuthTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[state]
	if !ok {
		return nil, false
	}
	delete(s.transactions, state)

	if s.now().Sub(txn.CreatedAt) > TransactionTTL {
		return nil, false
	}
	return txn, true
}

// StoreCode saves an authorization code record
func (s *FlowStore) StoreCode(rec *AuthorizationCodeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[rec.ProxyCode] = rec
}

// ConsumeCode removes and returns the record for the given proxy code.
// The record is deleted on first read regardless of what the caller does
// with it afterwards.
func (s *FlowStore) ConsumeCode(code string) (*AuthorizationCodeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.codes[code]
	if !ok {
		return nil, false
	}
	delete(s.codes, code)

	if s.now().Sub(rec.CreatedAt) > CodeTTL {
		return nil, false
	}
	return rec, true
}

// Sweep removes transactions and codes past their TTLs and returns how many
// entries were reclaimed.
func (s *FlowStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, txn := range s.transactions {
		if now.Sub(txn.CreatedAt) > TransactionTTL {
			delete(s.transactions, k)
			removed++
		}
	}
	for k, rec := range s.codes {
		if now.Sub(rec.CreatedAt) > CodeTTL {
			delete(s.codes, k)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every SweepInterval until ctx is cancelled.
func (s *FlowStore) StartSweeper(ctx context.Context, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					logger.Debug("swept expired authorization state", zap.Int("removed", n))
				}
			}
		}
	}()
}
