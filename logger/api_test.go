// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/pgas/conf"
	"github.com/NVIDIA/pgas/utils"
)

func testNestedFunc() {
	myint := 3
	ctx := TraceEnter("the prefix", 1, myint)
	ctx.TraceExit("the prefix", myint)
}

func testLoggerUp(t *testing.T, confStrings []string) (target LogTarget) {
	confMap, err := conf.MakeConfMapFromStrings(confStrings)
	require.NoError(t, err)

	require.NoError(t, Up(confMap))
	t.Cleanup(func() { _ = Down(confMap) })

	target.Init(10)
	AddLogTarget(target)

	return
}

func TestAPI(t *testing.T) {
	target := testLoggerUp(t, []string{
		"Logging.LogToConsole=false",
		"Logging.TraceLevelLogging=logger",
		"Logging.DebugLevelLogging=none",
	})

	Tracef("hello there!")
	assert.Equal(t, 1, target.LogBuf.TotalEntries)
	assert.Contains(t, target.LogBuf.LogEntries[0], "hello there!")
	assert.Contains(t, target.LogBuf.LogEntries[0], "function=TestAPI")
	assert.Contains(t, target.LogBuf.LogEntries[0], "package=logger")

	Tracef("%v: %v", utils.GetFnName(), "traced")
	assert.Contains(t, target.LogBuf.LogEntries[0], "logger.TestAPI: traced")

	Warnf("%v: %v", "IAmTheCaller", "this is the warning")
	assert.Contains(t, target.LogBuf.LogEntries[0], "level=warning")

	err := fmt.Errorf("this is the error")
	ErrorfWithError(err, "we had an error!")
	assert.Contains(t, target.LogBuf.LogEntries[0], "error=\"this is the error\"")

	testNestedFunc()
	assert.Contains(t, target.LogBuf.LogEntries[1], ">> called the prefix 1 3")
	assert.Contains(t, target.LogBuf.LogEntries[1], "function=testNestedFunc")
	assert.Contains(t, target.LogBuf.LogEntries[0], "<< returning the prefix 3")

	// debug logs stay off without a DebugLevelLogging package
	before := target.LogBuf.TotalEntries
	DebugfID(DbgTesting, "not emitted")
	assert.Equal(t, before, target.LogBuf.TotalEntries)
}

func TestTraceDisabled(t *testing.T) {
	target := testLoggerUp(t, []string{
		"Logging.LogToConsole=false",
		"Logging.TraceLevelLogging=none",
	})

	Tracef("should not appear")
	Infof("should appear")

	assert.Equal(t, 1, target.LogBuf.TotalEntries)
	assert.Contains(t, target.LogBuf.LogEntries[0], "should appear")

	confMap, err := conf.MakeConfMapFromStrings([]string{"Logging.TraceLevelLogging=logger"})
	require.NoError(t, err)
	require.NoError(t, SignaledFinish(confMap))

	// SignaledFinish announces the newly enabled package at info level
	assert.Equal(t, 2, target.LogBuf.TotalEntries)
	assert.Contains(t, target.LogBuf.LogEntries[0], "Package logger trace logging is enabled.")

	Tracef("now it does")
	assert.Equal(t, 3, target.LogBuf.TotalEntries)
	assert.Contains(t, target.LogBuf.LogEntries[0], "now it does")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "trace", TraceLevel.String())
	assert.Equal(t, "warn", WarnLevel.String())
	assert.Equal(t, "unknown", Level(99).String())
}
