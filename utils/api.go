// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package utils provides miscellaneous utilities shared by the runtime packages.
package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

var (
	trailingPathElementRE = regexp.MustCompile(`[^\/]*$`)
	leadingPkgNameRE      = regexp.MustCompile(`^[^.]*`)
	trailingFnNameRE      = regexp.MustCompile(`[^.]*$`)
)

// GetGID returns the goroutine id of the caller.
//
// Only intended for log annotation: tasks and message handlers run on distinct
// goroutines so the gid distinguishes them in traces.
func GetGID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

// GetAFnName returns "package.Function" for the caller level frames up the stack
func GetAFnName(level int) string {
	pc, _, _, ok := runtime.Caller(level + 1)
	if !ok {
		return "unknown.unknown"
	}
	functionObject := runtime.FuncForPC(pc)
	if nil == functionObject {
		return "unknown.unknown"
	}
	return trailingPathElementRE.FindString(functionObject.Name())
}

// GetFuncPackage returns the function name, package name and goroutine id of
// the caller level frames up the stack
func GetFuncPackage(level int) (fn string, pkg string, gid uint64) {
	funcPkg := GetAFnName(level + 1)

	pkg = leadingPkgNameRE.FindString(funcPkg)
	fn = trailingFnNameRE.FindString(funcPkg)
	gid = GetGID()

	return
}

// GetFnName returns a string containing the name of the running function and its package.
func GetFnName() string {
	return GetAFnName(1)
}

// GetCallerFnName returns a string containing the name of the calling function.
func GetCallerFnName() string {
	return GetAFnName(2)
}

// Stopwatch measures elapsed wall time; the bench driver and the protocol
// latency histograms both use it.
type Stopwatch struct {
	StartTime   time.Time
	StopTime    time.Time
	ElapsedTime time.Duration
	IsRunning   bool
}

func NewStopwatch() *Stopwatch {
	return &Stopwatch{StartTime: time.Now(), IsRunning: true}
}

// Stop is a no-op on a stopped Stopwatch other than returning the recorded time.
func (sw *Stopwatch) Stop() time.Duration {
	if sw.IsRunning {
		sw.StopTime = time.Now()
		sw.ElapsedTime = sw.StopTime.Sub(sw.StartTime)
		sw.IsRunning = false
	}
	return sw.ElapsedTime
}

// Restart is a no-op on a running Stopwatch.
func (sw *Stopwatch) Restart() {
	if !sw.IsRunning {
		sw.ElapsedTime = 0
		sw.StartTime = time.Now()
		sw.StopTime = time.Time{}
		sw.IsRunning = true
	}
}

func (sw *Stopwatch) Elapsed() time.Duration {
	if !sw.IsRunning {
		return sw.ElapsedTime
	}
	return time.Since(sw.StartTime)
}

func (sw *Stopwatch) ElapsedMs() int64 {
	return int64(sw.Elapsed() / time.Millisecond)
}

func (sw *Stopwatch) ElapsedUs() int64 {
	return int64(sw.Elapsed() / time.Microsecond)
}

func (sw *Stopwatch) ElapsedString() string {
	return sw.Elapsed().String()
}

// JSONify returns the JSON encoding of input (indented if requested) or a
// description of the encoding failure.
func JSONify(input interface{}, indentify bool) (output string) {
	var (
		err         error
		inputJSON   []byte
		outputBytes bytes.Buffer
	)

	inputJSON, err = json.Marshal(input)
	if nil != err {
		output = fmt.Sprintf("<<<json.Marshal(%#v) failed: %v>>>", input, err)
		return
	}

	if !indentify {
		output = string(inputJSON)
		return
	}

	err = json.Indent(&outputBytes, inputJSON, "", "\t")
	if nil != err {
		output = fmt.Sprintf("<<<json.Indent() failed: %v>>>", err)
		return
	}

	output = outputBytes.String()
	return
}
