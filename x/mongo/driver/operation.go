// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driver implements the operation execution core: the orchestrator
// that takes one logical database operation and dispatches it against a
// single server, attaching the right session, honoring transaction rules,
// and transparently retrying once when the failure is recoverable.
//
// The wire encoding, the connection pool, the topology monitor, and the
// session pool are collaborators this package only consumes through the
// Deployment, Server, and Connection interfaces; none of them are
// implemented here.
package driver

import (
	"context"

	"go.mongodb.org/mongo-driver-core/mongo/readpref"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/description"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/session"
)

// Aspect is a cross-cutting property of an operation. An operation carries
// zero or more aspects; the executor combines them with the operation's
// read preference, TrySecondaryWrite and CanRetryRead/CanRetryWrite fields
// to decide selection and retry policy.
type Aspect uint8

// Aspect bit flags.
const (
	ReadOperation Aspect = 1 << iota
	WriteOperation
	Retryable
	CursorCreating
	CursorIterating
)

// AspectSet is the immutable membership of aspects an Operation carries.
type AspectSet Aspect

// Has reports whether the set contains the given aspect.
func (s AspectSet) Has(a Aspect) bool { return Aspect(s)&a != 0 }

// Connection is a single, already-established connection to a server. Its
// lifecycle (pooling, checkout, checkin) is owned by the connection pool,
// out of scope here.
type Connection interface {
	Description() description.Server
	Close() error
}

// Server represents a single server that has survived selection. Borrowing
// one is only valid for the duration of a single attempt; the executor
// never stores it past that.
type Server interface {
	Connection(context.Context) (Connection, error)
	Description() description.Server
}

// Deployment is implemented by whatever owns server discovery (the
// topology monitor, out of scope here). SelectServer is the only call the
// executor ever blocks on besides Operation.Execute itself.
type Deployment interface {
	SelectServer(ctx context.Context, selector description.ServerSelector) (Server, error)
	Kind() description.TopologyKind
}

// Topology is the superset of capability queries the executor needs beyond
// plain server selection: whether session support is known yet, whether
// the servers support sessions and snapshot reads, the lowest wire version
// in common across the topology, and the two retry feature flags.
type Topology interface {
	Deployment

	ShouldCheckForSessionSupport() bool
	HasSessionSupport() bool
	SupportsSnapshotReads() bool
	CommonWireVersion() int32

	RetryReads() bool
	RetryWrites() bool

	// StartSession creates a brand-new implicit session. The session pool
	// that actually backs this (out of scope here) is responsible for
	// reclaiming server-side resources once EndSession is called.
	StartSession() *session.Client
}

// ExecuteOptions carries the retry intent the controller computed for this
// attempt. The source this package is adapted from signaled retry intent by
// mutating the operation descriptor itself (a documented smell); passing it
// as an argument instead keeps Operation immutable and keeps both attempts
// of a retried write working from the same value.
type ExecuteOptions struct {
	// WillRetryWrite is true from before the first attempt onward for any
	// write that qualified for retry, regardless of whether the retry
	// actually happens. It is consumed by the (out of scope) wire encoder
	// to add a txnNumber to the command.
	WillRetryWrite bool
}

// Operation is the immutable description of one logical database call:
// what kind of thing it is (Aspects), how to pick a server
// (ReadPreference, or an explicit Server for cursor continuation), which
// session to run it under, and how to actually run it (Execute).
//
// An Operation value is consumed at most twice by the executor -- once for
// the initial attempt, once for the retry -- and is never mutated except
// through the Server field, which the cursor layer (out of scope here)
// updates after a successful getMore so the next continuation is anchored
// correctly. Retry intent reaches Execute through ExecuteOptions instead.
type Operation struct {
	Aspects AspectSet

	// ReadPreference defaults to PRIMARY when nil.
	ReadPreference *readpref.ReadPref

	// Session is the explicit session the caller supplied, or nil if the
	// executor should synthesize an implicit one.
	Session *session.Client

	// Server is the prior server description a CURSOR_ITERATING operation
	// must be re-anchored to.
	Server description.Server

	TrySecondaryWrite  bool
	BypassPinningCheck bool

	CanRetryRead  bool
	CanRetryWrite bool

	// RetryableRead classifies a first-attempt error as retryable for a
	// read operation. Nil falls back to DefaultRetryableRead. Kept
	// pluggable because the classification is owned by the database's
	// error specification, not by the executor.
	RetryableRead RetryablePredicate

	// Execute runs the operation against the given server and session,
	// returning the operation's declared result or a classified error. It
	// may be called twice (attempt, retry) and it may panic synchronously;
	// the executor guarantees implicit-session cleanup either way.
	Execute func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (interface{}, error)
}

// HasAspect reports whether the operation carries the given aspect.
func (op Operation) HasAspect(a Aspect) bool { return op.Aspects.Has(a) }

// EffectiveReadPreference returns the operation's read preference, or
// Primary if none was set.
func (op Operation) EffectiveReadPreference() *readpref.ReadPref {
	if op.ReadPreference == nil {
		return readpref.Primary()
	}
	return op.ReadPreference
}

// Valid reports whether this is a well-formed Operation the executor can
// run: it must have an Execute function, and a CURSOR_ITERATING operation
// must carry a prior server to anchor to.
func (op Operation) Valid() bool {
	if op.Execute == nil {
		return false
	}
	if op.HasAspect(CursorIterating) && op.Server.Addr == "" {
		return false
	}
	return true
}
