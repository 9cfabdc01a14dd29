// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFuncPackage(t *testing.T) {
	fn, pkg, gid := GetFuncPackage(0)
	assert.Equal(t, "TestGetFuncPackage", fn)
	assert.Equal(t, "utils", pkg)
	assert.NotZero(t, gid)

	assert.Equal(t, "utils.TestGetFuncPackage", GetFnName())

	callerName := func() string { return GetCallerFnName() }()
	assert.Equal(t, "utils.TestGetFuncPackage", callerName)
}

func TestGetGIDDistinct(t *testing.T) {
	mine := GetGID()
	theirs := make(chan uint64)
	go func() { theirs <- GetGID() }()
	assert.NotEqual(t, mine, <-theirs)
}

func TestStopwatch(t *testing.T) {
	sw := NewStopwatch()
	assert.True(t, sw.IsRunning)

	time.Sleep(2 * time.Millisecond)
	elapsed := sw.Stop()
	assert.False(t, sw.IsRunning)
	assert.True(t, elapsed >= 2*time.Millisecond)

	// stopping twice must not change the recorded time
	assert.Equal(t, elapsed, sw.Stop())
	assert.Equal(t, elapsed, sw.Elapsed())
	assert.Equal(t, int64(elapsed/time.Millisecond), sw.ElapsedMs())
	assert.Equal(t, elapsed.String(), sw.ElapsedString())

	sw.Restart()
	assert.True(t, sw.IsRunning)
	assert.True(t, sw.ElapsedUs() < elapsed.Microseconds()+int64(time.Second/time.Microsecond))
}

func TestJSONify(t *testing.T) {
	type sample struct {
		Partitions int
		Protocol   string
	}

	assert.Equal(t, `{"Partitions":2,"Protocol":"wi"}`, JSONify(sample{2, "wi"}, false))
	assert.Equal(t, "{\n\t\"Partitions\": 2,\n\t\"Protocol\": \"wi\"\n}", JSONify(sample{2, "wi"}, true))
	assert.Contains(t, JSONify(make(chan int), false), "json.Marshal")
}
