// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package serverselector holds the concrete description.ServerSelector
// implementations the driver composes at operation time. Each type models
// exactly one routing policy; callers combine them with Composite rather
// than growing a single selector with conditionals.
package serverselector

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver-core/mongo/readpref"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/description"
)

// ReadPref selects servers that satisfy a read preference.
type ReadPref struct {
	ReadPref *readpref.ReadPref
}

// SelectServer implements the description.ServerSelector interface.
func (rp *ReadPref) SelectServer(_ context.Context, topo description.Topology) ([]description.Server, error) {
	mode := rp.ReadPref.Mode()

	if topo.Kind == description.Single {
		return topo.Servers, nil
	}

	var result []description.Server
	for _, s := range topo.Servers {
		switch mode {
		case readpref.PrimaryMode:
			if s.Kind == description.RSPrimary || s.Kind == description.Standalone || s.Kind == description.Mongos {
				result = append(result, s)
			}
		case readpref.PrimaryPreferredMode:
			if s.Kind != description.UnknownServer {
				result = append(result, s)
			}
		case readpref.SecondaryMode:
			if s.Kind == description.RSSecondary || s.Kind == description.Mongos {
				result = append(result, s)
			}
		default: // SecondaryPreferredMode, NearestMode
			if s.Kind != description.UnknownServer {
				result = append(result, s)
			}
		}
	}
	return result, nil
}

// Write selects servers that can accept writes: the primary of a replica
// set, a standalone, or any mongos in a sharded cluster.
type Write struct{}

// SelectServer implements the description.ServerSelector interface.
func (*Write) SelectServer(_ context.Context, topo description.Topology) ([]description.Server, error) {
	if topo.Kind == description.Single {
		return topo.Servers, nil
	}

	var result []description.Server
	for _, s := range topo.Servers {
		if s.Kind == description.RSPrimary || s.Kind == description.Standalone || s.Kind == description.Mongos {
			result = append(result, s)
		}
	}
	return result, nil
}

// SecondaryWritable selects a server eligible to take a write even though the
// caller asked for a non-primary read preference, restricted to topologies
// whose common wire version already supports the behavior. It exists for
// operations such as aggregate-with-$out that the server routes specially.
type SecondaryWritable struct {
	CommonWireVersion int32
	ReadPref          *readpref.ReadPref
}

// MinSecondaryWritableWireVersion is the lowest wire version a topology must
// advertise before a secondary-writable selection is attempted at all.
const MinSecondaryWritableWireVersion = 13

// SelectServer implements the description.ServerSelector interface.
func (sw *SecondaryWritable) SelectServer(ctx context.Context, topo description.Topology) ([]description.Server, error) {
	if sw.CommonWireVersion < MinSecondaryWritableWireVersion {
		return (&Write{}).SelectServer(ctx, topo)
	}
	return (&ReadPref{ReadPref: sw.ReadPref}).SelectServer(ctx, topo)
}

// Server pins selection to the single server that previously held an open
// cursor. It is the only selector that can return a server the topology no
// longer believes is reachable; the caller is expected to treat a miss as a
// hard failure rather than fall back to a different server.
type Server struct {
	Description description.Server
}

// SelectServer implements the description.ServerSelector interface.
func (ss *Server) SelectServer(_ context.Context, topo description.Topology) ([]description.Server, error) {
	for _, s := range topo.Servers {
		if s.Addr == ss.Description.Addr {
			return []description.Server{s}, nil
		}
	}
	return nil, fmt.Errorf("server %s no longer part of the topology", ss.Description.Addr)
}

// Latency is the latency-window stage of selection. It is meant to be
// composed after a kind-based selector, never used alone. It does not
// narrow the candidates: see SelectServer.
type Latency struct {
	Latency int64 // nanoseconds; carried but not applied
}

// SelectServer implements the description.ServerSelector interface. Without
// real RTT data (owned by the topology monitor, out of scope here) this is a
// pass-through; it exists so operation code can compose it unconditionally
// the way the real selection pipeline does.
func (l *Latency) SelectServer(_ context.Context, topo description.Topology) ([]description.Server, error) {
	return topo.Servers, nil
}

// Composite runs each selector in turn, intersecting the topology down to
// the servers every selector agreed on.
type Composite struct {
	Selectors []description.ServerSelector
}

// SelectServer implements the description.ServerSelector interface.
func (cs *Composite) SelectServer(ctx context.Context, topo description.Topology) ([]description.Server, error) {
	candidates := topo.Servers
	for _, sel := range cs.Selectors {
		narrowed, err := sel.SelectServer(ctx, description.Topology{Kind: topo.Kind, Servers: candidates})
		if err != nil {
			return nil, err
		}
		candidates = narrowed
		if len(candidates) == 0 {
			break
		}
	}
	return candidates, nil
}
