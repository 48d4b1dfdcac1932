// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"

	"go.mongodb.org/mongo-driver-core/x/mongo/driver/address"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/description"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/session"
)

type fakeConnection struct {
	desc description.Server
}

func (c *fakeConnection) Description() description.Server { return c.desc }
func (c *fakeConnection) Close() error                    { return nil }

type fakeServer struct {
	desc description.Server
}

func (s *fakeServer) Description() description.Server { return s.desc }
func (s *fakeServer) Connection(context.Context) (Connection, error) {
	return &fakeConnection{desc: s.desc}, nil
}

func serverWithWireVersion(addr string, maxWire int32, loadBalanced bool) *fakeServer {
	return &fakeServer{desc: description.Server{
		Addr:                  address.Address(addr),
		Kind:                  description.RSPrimary,
		WireVersion:           description.VersionRange{Min: 0, Max: maxWire},
		LoadBalanced:          loadBalanced,
		SessionTimeoutMinutes: int64Ptr(30),
	}}
}

func int64Ptr(v int64) *int64 { return &v }

// fakeTopology is a scriptable Topology: selectServer pops the next queued
// server/error pair on each call so tests can assert first-selection vs
// retry-selection behavior independently.
type fakeTopology struct {
	kind                      description.TopologyKind
	shouldCheckSessionSupport bool
	hasSessionSupport         bool
	supportsSnapshotReads     bool
	commonWireVersion         int32
	retryReads                bool
	retryWrites               bool

	selectResults []selectResult
	selectCalls   int
	selectors     []description.ServerSelector

	startedSessions []*session.Client
	endedOwners     []session.Owner
}

type selectResult struct {
	server Server
	err    error
}

func (t *fakeTopology) SelectServer(_ context.Context, selector description.ServerSelector) (Server, error) {
	i := t.selectCalls
	t.selectCalls++
	t.selectors = append(t.selectors, selector)
	if i >= len(t.selectResults) {
		panic("fakeTopology: more SelectServer calls than scripted results")
	}
	r := t.selectResults[i]
	return r.server, r.err
}

func (t *fakeTopology) Kind() description.TopologyKind { return t.kind }

func (t *fakeTopology) ShouldCheckForSessionSupport() bool { return t.shouldCheckSessionSupport }
func (t *fakeTopology) HasSessionSupport() bool            { return t.hasSessionSupport }
func (t *fakeTopology) SupportsSnapshotReads() bool        { return t.supportsSnapshotReads }
func (t *fakeTopology) CommonWireVersion() int32           { return t.commonWireVersion }
func (t *fakeTopology) RetryReads() bool                   { return t.retryReads }
func (t *fakeTopology) RetryWrites() bool                  { return t.retryWrites }

func (t *fakeTopology) StartSession() *session.Client {
	s := session.NewImplicitClient()
	owner := s.Owner()
	s.EndSessionFn = func() { t.endedOwners = append(t.endedOwners, owner) }
	t.startedSessions = append(t.startedSessions, s)
	return s
}

func defaultTopology() *fakeTopology {
	return &fakeTopology{
		kind:              description.ReplicaSetWithPrimary,
		hasSessionSupport: true,
		commonWireVersion: 17,
		retryReads:        true,
		retryWrites:       true,
	}
}
