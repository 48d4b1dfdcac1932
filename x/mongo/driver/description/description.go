// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package description houses the read-only capability and identity
// descriptions that the driver consumes when selecting and talking to a
// server: TopologyKind, ServerKind, the wire version range a server
// advertises, and the topology-wide capabilities (snapshot reads) that gate
// the operation executor's behavior.
package description

import (
	"context"

	"go.mongodb.org/mongo-driver-core/x/mongo/driver/address"
)

// ServerKind represents the kind of a single server.
type ServerKind uint32

// ServerKind constants.
const (
	UnknownServer ServerKind = iota
	Standalone
	RSPrimary
	RSSecondary
	RSArbiter
	RSOther
	RSGhost
	Mongos
	LoadBalancer
)

// TopologyKind represents the kind of topology a server belongs to.
type TopologyKind uint32

// TopologyKind constants.
const (
	Unknown TopologyKind = iota
	Single
	ReplicaSet
	ReplicaSetWithPrimary
	ReplicaSetNoPrimary
	Sharded
	LoadBalanced
)

// VersionRange represents a range of wire protocol versions supported by a
// server, inclusive on both ends.
type VersionRange struct {
	Min int32
	Max int32
}

// Includes returns true if the version range includes the given version.
func (vr VersionRange) Includes(v int32) bool {
	return v >= vr.Min && v <= vr.Max
}

// Server contains the identity and capability information for a single
// server, as last reported by the topology monitor. The executor treats
// this as a read-only snapshot borrowed for the lifetime of one attempt.
type Server struct {
	Addr address.Address

	Kind         ServerKind
	WireVersion  VersionRange
	LoadBalanced bool

	// SessionTimeoutMinutes, when non-nil, advertises the logical session
	// timeout; its presence is one of the signals the topology uses to
	// decide that session support is known.
	SessionTimeoutMinutes *int64
}

// MaxWireVersion is a convenience accessor used by the executor to decide
// retryable-read eligibility (wire version >= 6).
func (s Server) MaxWireVersion() int32 {
	return s.WireVersion.Max
}

// SupportsRetryWrites reports whether this server, on its own, is capable of
// acknowledging retryable writes. Standalones never support retryable
// writes regardless of wire version.
func (s Server) SupportsRetryWrites() bool {
	if s.Kind == Standalone || s.Kind == UnknownServer {
		return false
	}
	return s.SessionTimeoutMinutes != nil
}

// SelectedServer decorates a Server description with the kind of the
// topology it was selected from, for consumers that need the topology kind
// in order to interpret the server's role.
type SelectedServer struct {
	Server
	TopologyKind TopologyKind
}

// Topology is a read-only snapshot of a deployment's current topology as
// observed by the (out of scope) monitor. The executor only ever reads from
// it; it never causes a state transition itself.
type Topology struct {
	Kind    TopologyKind
	Servers []Server
}

// Capabilities reports feature support that depends on the whole topology
// rather than a single server, such as whether every data-bearing server is
// new enough to serve snapshot reads.
type Capabilities struct {
	SupportsSnapshotReads bool
}

// ServerSelector is implemented by every strategy capable of narrowing a
// Topology down to the servers eligible to run an operation. Selection is
// pure and side-effect free; SelectServer (owned by the topology monitor,
// out of scope here) is what turns the surviving candidates into a live
// connection-bearing Server.
type ServerSelector interface {
	SelectServer(context.Context, Topology) ([]Server, error)
}

// ServerSelectorFunc adapts a plain function to the ServerSelector interface.
type ServerSelectorFunc func(context.Context, Topology) ([]Server, error)

// SelectServer implements ServerSelector.
func (f ServerSelectorFunc) SelectServer(ctx context.Context, t Topology) ([]Server, error) {
	return f(ctx, t)
}
