// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"

	"go.mongodb.org/mongo-driver-core/internal/logger"
	"go.mongodb.org/mongo-driver-core/internal/serverselector"
	"go.mongodb.org/mongo-driver-core/mongo/readpref"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/session"
)

// Execute is the single public entry point of the execution core: it takes
// a topology handle and an operation value, and returns the operation's
// declared result or a failure. See the package doc and §4.1 of the
// operation execution design for the ordered steps this follows.
func Execute(ctx context.Context, topo Topology, op Operation) (interface{}, error) {
	return execute(ctx, topo, op, nil)
}

// log, when non-nil, receives a line for each retry decision the controller
// makes. It is nil by default; SetLogger installs a sink the way the rest
// of the driver's ambient logging does.
var log *logger.Logger

// SetLogger installs the logger used to report retry decisions made by the
// executor. Passing nil disables logging.
func SetLogger(l *logger.Logger) { log = l }

func logf(component logger.Component, format string, args ...interface{}) {
	if log == nil {
		return
	}
	log.Print(logger.LevelInfo, component, format, args...)
}

func execute(ctx context.Context, topo Topology, op Operation, reentered *struct{}) (interface{}, error) {
	// Step 1: type gate. A malformed operation is a programmer error, not
	// a retryable condition.
	if !op.Valid() {
		return nil, ErrRuntimeViolation
	}

	// Step 2: topology readiness. The first operation against a brand new
	// deployment can race with initial server discovery; force it and
	// re-enter rather than guessing at session support.
	if reentered == nil && topo.ShouldCheckForSessionSupport() {
		if _, err := topo.SelectServer(ctx, &serverselector.ReadPref{ReadPref: readpref.PrimaryPreferred()}); err != nil {
			return nil, err
		}
		return execute(ctx, topo, op, &struct{}{})
	}

	// Step 3: session acquisition.
	sess := op.Session
	var implicitOwner session.Owner

	switch {
	case topo.HasSessionSupport():
		switch {
		case sess == nil:
			sess = topo.StartSession()
			implicitOwner = sess.Owner()
		case sess.HasEnded():
			return nil, ErrExpiredSession
		case sess.SnapshotEnabled && !topo.SupportsSnapshotReads():
			return nil, &CompatibilityError{Reason: "snapshot reads require a topology that supports them"}
		}
	case sess != nil:
		return nil, &CompatibilityError{Reason: "sessions are not supported by this topology"}
	}

	op.Session = sess

	result, err := func() (result interface{}, err error) {
		// End the session on every exit path, but only if this invocation
		// is the one that created it: the owner token taken from the
		// session started above is
		// what lets a session supplied by the caller survive past this
		// call even though it is indistinguishable from an implicit one
		// by any other field.
		if sess != nil && sess.OwnedBy(implicitOwner) {
			defer sess.EndSession()
		}
		return runWithRetry(ctx, topo, op)
	}()

	return result, err
}

// checkTransactionReadPreference implements §4.3: a session in an active
// transaction forbids any read preference other than PRIMARY. It also
// performs the pinning maintenance: a pinned session whose transaction has
// committed is unpinned unless the operation explicitly bypasses that
// check. Pinning discipline itself otherwise belongs to the session layer.
func checkTransactionReadPreference(op Operation) error {
	sess := op.Session
	if sess == nil {
		return nil
	}

	if sess.TransactionState().InTransaction() && op.EffectiveReadPreference().Mode() != readpref.PrimaryMode {
		return &TransactionError{Mode: modeName(op.EffectiveReadPreference().Mode())}
	}

	if sess.IsPinned() && sess.TransactionState().IsCommitted() && !op.BypassPinningCheck {
		sess.Unpin(session.UnpinOptions{})
	}

	return nil
}

func modeName(m readpref.Mode) string {
	switch m {
	case readpref.PrimaryMode:
		return "primary"
	case readpref.PrimaryPreferredMode:
		return "primaryPreferred"
	case readpref.SecondaryMode:
		return "secondary"
	case readpref.SecondaryPreferredMode:
		return "secondaryPreferred"
	case readpref.NearestMode:
		return "nearest"
	default:
		return "unknown"
	}
}
