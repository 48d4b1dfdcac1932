// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package assert provides small, dependency-free test helpers in the style
// the rest of the driver's test suite uses instead of pulling in a third
// party assertion library.
package assert

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// Equal asserts that got and want are deeply equal.
func Equal(t *testing.T, want, got interface{}, msgAndArgs ...interface{}) bool {
	t.Helper()
	if reflect.DeepEqual(want, got) {
		return true
	}
	t.Errorf("%sgot %v, want %v", prefix(msgAndArgs...), got, want)
	return false
}

// True asserts that v is true.
func True(t *testing.T, v bool, msgAndArgs ...interface{}) bool {
	t.Helper()
	if v {
		return true
	}
	t.Errorf("%sexpected condition to be true", prefix(msgAndArgs...))
	return false
}

// False asserts that v is false.
func False(t *testing.T, v bool, msgAndArgs ...interface{}) bool {
	t.Helper()
	if !v {
		return true
	}
	t.Errorf("%sexpected condition to be false", prefix(msgAndArgs...))
	return false
}

// Nil asserts that v is nil.
func Nil(t *testing.T, v interface{}, msgAndArgs ...interface{}) bool {
	t.Helper()
	if isNil(v) {
		return true
	}
	t.Errorf("%sgot %v, want nil", prefix(msgAndArgs...), v)
	return false
}

// NotNil asserts that v is not nil.
func NotNil(t *testing.T, v interface{}, msgAndArgs ...interface{}) bool {
	t.Helper()
	if !isNil(v) {
		return true
	}
	t.Errorf("%sgot nil, want non-nil", prefix(msgAndArgs...))
	return false
}

// NoError asserts that err is nil.
func NoError(t *testing.T, err error, msgAndArgs ...interface{}) bool {
	t.Helper()
	if err == nil {
		return true
	}
	t.Errorf("%sunexpected error: %v", prefix(msgAndArgs...), err)
	return false
}

// ErrorIs asserts that errors.Is(err, target) holds.
func ErrorIs(t *testing.T, err, target error, msgAndArgs ...interface{}) bool {
	t.Helper()
	if errors.Is(err, target) {
		return true
	}
	t.Errorf("%sgot error %v, want it to wrap %v", prefix(msgAndArgs...), err, target)
	return false
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func prefix(msgAndArgs ...interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	format, ok := msgAndArgs[0].(string)
	if !ok {
		return ""
	}
	return fmt.Sprintf(format, msgAndArgs[1:]...) + ": "
}
