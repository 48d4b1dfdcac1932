// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"time"

	"go.mongodb.org/mongo-driver-core/internal/serverselector"
	"go.mongodb.org/mongo-driver-core/x/mongo/driver/description"
)

// defaultLatencyWindow mirrors the driver's long-standing localThreshold
// default: a server is eligible if its RTT is within this much of the
// fastest eligible server's RTT. serverselector.Latency carries this value
// but, having no RTT data, does not filter on it.
const defaultLatencyWindow = 15 * time.Millisecond

// computeSelector is a pure function of the operation and the topology's
// common wire version. It is evaluated once per execution and the result is
// reused for both the first and the retry selection, so a retry always
// obeys the same routing policy as the first attempt.
func computeSelector(op Operation, commonWireVersion int32) description.ServerSelector {
	switch {
	case op.HasAspect(CursorIterating):
		// A getMore must land on the server already holding the open
		// cursor; selection still runs so an unhealthy server triggers a
		// monitor check instead of silently being assumed reachable.
		return &serverselector.Server{Description: op.Server}
	case op.TrySecondaryWrite:
		return &serverselector.SecondaryWritable{
			CommonWireVersion: commonWireVersion,
			ReadPref:          op.EffectiveReadPreference(),
		}
	default:
		return &serverselector.Composite{Selectors: []description.ServerSelector{
			&serverselector.ReadPref{ReadPref: op.EffectiveReadPreference()},
			&serverselector.Latency{Latency: defaultLatencyWindow.Nanoseconds()},
		}}
	}
}
