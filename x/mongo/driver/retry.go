// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver-core/internal/logger"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/session"
)

// errRetryServerNotCapable is delivered, in place of the original
// first-attempt error, when the server selected for a retry doesn't
// support the retryable class the first attempt qualified for. Whether
// this (rather than surfacing the original failure) is the right behavior
// is an open question the design preserves rather than resolves.
var errRetryServerNotCapable = errors.New("driver: server selected for retry does not support the operation")

// runWithRetry is the Retry Controller state machine described in §4.4:
// Initial -> Selecting -> Executing -> {Succeeded | Classifying ->
// {Done(err) | Retrying -> Selecting' -> Executing' -> Done}}.
func runWithRetry(ctx context.Context, topo Topology, op Operation) (interface{}, error) {
	if err := checkTransactionReadPreference(op); err != nil {
		return nil, err
	}

	selector := computeSelector(op, topo.CommonWireVersion())

	// Redundant guard: the session could have entered a transaction
	// between the first check and now. Retained per the design's open
	// question rather than proven dead.
	if err := checkTransactionReadPreference(op); err != nil {
		return nil, err
	}

	server, err := topo.SelectServer(ctx, selector)
	if err != nil {
		return nil, err
	}

	eligible := retryEligible(op, topo, server)
	willRetryWrite := eligible && op.HasAspect(WriteOperation)
	if willRetryWrite && op.Session != nil {
		op.Session.IncrementTransactionNumber()
	}

	result, firstErr := op.Execute(ctx, server, op.Session, ExecuteOptions{WillRetryWrite: willRetryWrite})
	if firstErr == nil {
		return result, nil
	}
	if !eligible {
		return nil, firstErr
	}

	retry, classifyErr := classify(op, firstErr)
	if classifyErr != nil {
		// MMAPv1 rewrite: abort the retry path entirely.
		return nil, classifyErr
	}
	if !retry {
		return nil, firstErr
	}

	logf(logger.ComponentCommand, "retrying operation after: %v", firstErr)

	maybeUnpinForLoadBalancedCursorRecovery(op, server, firstErr)

	server2, err := topo.SelectServer(ctx, selector)
	if err != nil {
		return nil, err
	}
	if !retryCapable(op, server2) {
		return nil, errRetryServerNotCapable
	}

	return op.Execute(ctx, server2, op.Session, ExecuteOptions{WillRetryWrite: willRetryWrite})
}

// retryEligible decides, given the first selected server, whether a second
// attempt is permitted at all: the operation must carry RETRYABLE, the
// session (if any) must not be in a transaction, the topology setting must
// permit the right class, the chosen server must support it, and the
// operation's own canRetryRead/canRetryWrite flag must be set.
func retryEligible(op Operation, topo Topology, server Server) bool {
	if !op.HasAspect(Retryable) {
		return false
	}
	if op.Session != nil && op.Session.TransactionState().InTransaction() {
		return false
	}

	if op.HasAspect(ReadOperation) && topo.RetryReads() && op.CanRetryRead {
		if server.Description().MaxWireVersion() >= 6 {
			return true
		}
	}
	if op.HasAspect(WriteOperation) && topo.RetryWrites() && op.CanRetryWrite {
		if server.Description().SupportsRetryWrites() {
			return true
		}
	}
	return false
}

// retryCapable re-checks the same condition against the freshly selected
// retry server; it never re-checks the topology settings or aspects, which
// cannot have changed within a single invocation.
func retryCapable(op Operation, server Server) bool {
	if op.HasAspect(ReadOperation) && server.Description().MaxWireVersion() >= 6 {
		return true
	}
	if op.HasAspect(WriteOperation) && server.Description().SupportsRetryWrites() {
		return true
	}
	return false
}

// classify decides whether the first-attempt error should trigger a retry.
// A non-nil returned error means "stop, deliver this instead of the
// original" (the MMAPv1 rewrite); otherwise the bool reports retry or not.
func classify(op Operation, firstErr error) (retry bool, rewritten error) {
	if op.HasAspect(WriteOperation) {
		var de Error
		if errors.As(firstErr, &de) {
			if de.isLegacyTransactionNumberError() {
				return false, &mmapv1DiagnosticError{inner: firstErr}
			}
			if de.HasErrorLabel(RetryableWriteError) {
				return true, nil
			}
		}
		return false, nil
	}

	predicate := op.RetryableRead
	if predicate == nil {
		predicate = DefaultRetryableRead
	}
	return predicate(firstErr), nil
}

// maybeUnpinForLoadBalancedCursorRecovery implements the load-balanced
// cursor network-error recovery rule: the cursor was never successfully
// opened on the pinned connection, so the pin must be released and the
// server's connection pool evicted before the retry attempt.
func maybeUnpinForLoadBalancedCursorRecovery(op Operation, server Server, firstErr error) {
	if !op.HasAspect(CursorCreating) {
		return
	}
	if op.Session == nil || !op.Session.IsPinned() {
		return
	}
	if op.Session.TransactionState().InTransaction() {
		return
	}
	if !server.Description().LoadBalanced {
		return
	}

	var de Error
	isNetwork := errors.As(firstErr, &de) && de.IsNetworkError()
	if !isNetwork {
		var ne NetworkTransientError
		isNetwork = errors.As(firstErr, &ne)
	}
	if !isNetwork {
		return
	}

	op.Session.Unpin(session.UnpinOptions{Force: true, ForceClear: true})
}
