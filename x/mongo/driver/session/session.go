// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package session implements the driver's logical session: the state a
// Client carries across operations to support causal consistency,
// transactions, and retryable writes. The pool that issues and reclaims
// these (the server-side logical session cache) lives outside this
// package; Client is the value the executor acquires, mutates for the
// duration of one operation, and ends.
package session

import (
	"errors"
	"sync/atomic"
)

// ErrSessionEnded is returned when a user attempts to use an ended session.
var ErrSessionEnded = errors.New("ended session was used")

// State represents the state of a transaction.
type State uint8

// Transaction state constants.
const (
	None State = iota
	Starting
	InProgress
	Committed
	Aborted
)

// Owner identifies who is responsible for ending a session. The zero value
// means the session was supplied explicitly by the caller and outlives the
// operation; the executor never ends those.
type Owner struct {
	id    uint64
	valid bool
}

var implicitOwnerSeq uint64

// NewImplicitOwner mints a token unique to one executor invocation, used to
// prove "this executor created this session" without relying on pointer
// identity or a global unique symbol.
func NewImplicitOwner() Owner {
	return Owner{id: atomic.AddUint64(&implicitOwnerSeq, 1), valid: true}
}

// Transaction tracks the state of an in-progress (or recently finished)
// multi-statement transaction attached to a session.
type Transaction struct {
	state  State
	number int64
}

// InTransaction reports whether a transaction is currently active on the
// session (started but not yet committed or aborted).
func (t *Transaction) InTransaction() bool {
	return t != nil && (t.state == Starting || t.state == InProgress)
}

// IsCommitted reports whether the most recent transaction on the session
// ended with a commit.
func (t *Transaction) IsCommitted() bool {
	return t != nil && t.state == Committed
}

// Start moves the transaction into the InProgress state. It is owned by
// the (out of scope) transaction API; exported so the executor's tests can
// exercise the in-transaction code paths without a full transaction API.
func (t *Transaction) Start() { t.state = InProgress }

// Commit moves the transaction into the Committed state.
func (t *Transaction) Commit() { t.state = Committed }

// Abort moves the transaction into the Aborted state.
func (t *Transaction) Abort() { t.state = Aborted }

// Client is a logical session. A single Client is never used concurrently
// by more than one in-flight operation; the executor's single-threaded
// contract is what makes that safe.
type Client struct {
	owner  Owner
	ended  bool

	SnapshotEnabled bool

	pinnedServerAddr string
	pinned           bool

	transaction     Transaction
	transactionNum  int64

	// EndSessionFn is invoked by EndSession once; it is supplied by the
	// (out of scope) session pool at construction time and models
	// returning the session to the pool or closing it server-side.
	EndSessionFn func()

	// ClearPoolFn, when set, clears the connection pool of the server the
	// session is pinned to. It is invoked only by the load-balanced
	// cursor network-error recovery path.
	ClearPoolFn func(addr string)
}

// NewImplicitClient constructs a session owned by the executor.
func NewImplicitClient() *Client {
	return &Client{owner: NewImplicitOwner()}
}

// NewExplicitClient constructs a session supplied by the caller; the
// executor never ends it.
func NewExplicitClient() *Client {
	return &Client{}
}

// Owner returns the implicit-owner token for this session, or the zero
// Owner if the session was supplied explicitly.
func (c *Client) Owner() Owner { return c.owner }

// OwnedBy reports whether this session is the implicit session created by
// the invocation identified by owner.
func (c *Client) OwnedBy(owner Owner) bool {
	return c.owner.valid && owner.valid && c.owner.id == owner.id
}

// HasEnded reports whether EndSession has already been called.
func (c *Client) HasEnded() bool { return c.ended }

// EndSession marks the session ended and invokes EndSessionFn exactly once,
// regardless of how many times EndSession is called.
func (c *Client) EndSession() {
	if c.ended {
		return
	}
	c.ended = true
	if c.EndSessionFn != nil {
		c.EndSessionFn()
	}
}

// IsPinned reports whether the session is currently pinned to a server.
func (c *Client) IsPinned() bool { return c.pinned }

// PinnedServerAddr returns the address the session is pinned to, if any.
func (c *Client) PinnedServerAddr() (string, bool) { return c.pinnedServerAddr, c.pinned }

// Pin binds the session to the given server address.
func (c *Client) Pin(addr string) {
	c.pinned = true
	c.pinnedServerAddr = addr
}

// UnpinOptions controls how Unpin releases a pinned session.
type UnpinOptions struct {
	// Force unpins even if ordinary pinning discipline would keep the pin.
	Force bool
	// ForceClear additionally clears the connection pool of the
	// previously pinned server, used when a cursor never opened
	// successfully on the pinned connection.
	ForceClear bool
}

// Unpin releases the session's pin. With ForceClear set, it also evicts the
// formerly pinned server's connection pool via ClearPoolFn.
func (c *Client) Unpin(opts UnpinOptions) {
	if !c.pinned && !opts.Force {
		return
	}
	addr := c.pinnedServerAddr
	c.pinned = false
	c.pinnedServerAddr = ""
	if opts.ForceClear && c.ClearPoolFn != nil && addr != "" {
		c.ClearPoolFn(addr)
	}
}

// TransactionState returns the session's transaction state.
func (c *Client) TransactionState() *Transaction { return &c.transaction }

// TransactionNumber returns the current monotonic transaction/write number.
func (c *Client) TransactionNumber() int64 { return c.transactionNum }

// IncrementTransactionNumber bumps the session's monotonic transaction
// number. Retryable writes use this to tag both attempts of a retried write
// identically so the server can deduplicate.
func (c *Client) IncrementTransactionNumber() {
	c.transactionNum++
}

// ClusterClock tracks the highest clusterTime the driver has observed,
// advancing the cluster's logical clock for causally consistent reads. It is
// outside the executor's concern: neither Client nor the executor holds or
// passes one.
type ClusterClock struct {
	clusterTime []byte
}

// GetClusterTime returns the most recently observed cluster time document.
func (cc *ClusterClock) GetClusterTime() []byte {
	if cc == nil {
		return nil
	}
	return cc.clusterTime
}

// AdvanceClusterTime replaces the stored cluster time with the given one
// when it is non-empty. It does not compare the two; the last call wins.
func (cc *ClusterClock) AdvanceClusterTime(clusterTime []byte) {
	if cc == nil || len(clusterTime) == 0 {
		return
	}
	cc.clusterTime = clusterTime
}
