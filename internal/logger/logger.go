// Copyright (C) MongoDB, Inc. 2022-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"fmt"
	"os"
	"strings"
)

const jobBufferSize = 100
const logSinkPathEnvVar = "MONGODB_LOG_PATH"
const componentEnvVar = "MONGODB_LOG_EXECUTOR"

// Component names a subsystem a log message originates from.
type Component string

// Component constants. The executor only ever logs under ComponentCommand
// today, but the enum is kept open the way the rest of the driver's
// component-scoped logging is, so a future collaborator can add its own
// without touching this package.
const (
	ComponentCommand         Component = "command"
	ComponentServerSelection Component = "serverSelection"
)

// LogSink represents a logging implementation. It is specifically designed
// to be a subset of go-logr/logr's LogSink interface.
type LogSink interface {
	Info(level int, msg string, keysAndValues ...interface{})
}

type job struct {
	level     Level
	component Component
	msg       string
}

// Logger is the executor's ambient logger. It never blocks the calling
// goroutine: Print enqueues and a background goroutine (started by
// StartPrintListener) drains to the Sink.
type Logger struct {
	ComponentLevels map[Component]Level
	Sink            LogSink

	jobs chan job
}

// New constructs a Logger. A nil sink writes to stdout when
// MONGODB_LOG_PATH is "stdout", and to stderr otherwise.
func New(sink LogSink, componentLevels map[Component]Level) *Logger {
	if componentLevels == nil {
		componentLevels = map[Component]Level{
			ComponentCommand:         ParseLevel(os.Getenv(componentEnvVar)),
			ComponentServerSelection: ParseLevel(os.Getenv(componentEnvVar)),
		}
	}

	if sink == nil {
		sink = selectLogSink()
	}

	return &Logger{
		ComponentLevels: componentLevels,
		Sink:            sink,
		jobs:            make(chan job, jobBufferSize),
	}
}

// Close stops the printer goroutine.
func (l *Logger) Close() { close(l.jobs) }

// Is reports whether the given Level is enabled for the given Component.
func (l *Logger) Is(level Level, component Component) bool {
	return l.ComponentLevels[component] >= level
}

// Print formats and enqueues a log line. Print never blocks on a full
// queue; when a message is dropped, a notice is enqueued in its place only
// if the queue has room again by then.
func (l *Logger) Print(level Level, component Component, format string, args ...interface{}) {
	if l == nil || !l.Is(level, component) {
		return
	}

	msg := job{level: level, component: component, msg: fmt.Sprintf(format, args...)}
	select {
	case l.jobs <- msg:
	default:
		select {
		case l.jobs <- job{level: level, component: component, msg: "log message dropped: queue full"}:
		default:
		}
	}
}

// StartPrintListener starts the goroutine that drains Logger.Print calls to
// its Sink.
func StartPrintListener(l *Logger) {
	go func() {
		for j := range l.jobs {
			if l.Sink == nil {
				continue
			}
			l.Sink.Info(int(j.level), j.msg, "component", j.component)
		}
	}()
}

type osSink struct {
	f *os.File
}

func (s *osSink) Info(_ int, msg string, keysAndValues ...interface{}) {
	fmt.Fprintln(s.f, append([]interface{}{msg}, keysAndValues...)...)
}

func selectLogSink() LogSink {
	path := strings.ToLower(os.Getenv(logSinkPathEnvVar))
	switch path {
	case "stdout":
		return &osSink{f: os.Stdout}
	default:
		return &osSink{f: os.Stderr}
	}
}
