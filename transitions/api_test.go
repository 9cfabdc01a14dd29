// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package transitions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/pgas/conf"
)

type testCallbacksInterfaceStruct struct {
	name   string
	failUp bool
}

var (
	testCallbackLog []string

	testCallbacksA = &testCallbacksInterfaceStruct{name: "A"}
	testCallbacksB = &testCallbacksInterfaceStruct{name: "B"}
	testCallbacksC = &testCallbacksInterfaceStruct{name: "C"}
)

var testConfStrings = []string{
	"Logging.LogFilePath=/dev/null",
	"Logging.LogToConsole=false",
}

func init() {
	Register("testA", testCallbacksA)
	Register("testB", testCallbacksB)
	Register("testC", testCallbacksC)
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) Up(confMap conf.ConfMap) (err error) {
	testCallbackLog = append(testCallbackLog, testCallbacksInterface.name+".Up")
	if testCallbacksInterface.failUp {
		err = fmt.Errorf("%s.Up() told to fail", testCallbacksInterface.name)
	}
	return
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	testCallbackLog = append(testCallbackLog, testCallbacksInterface.name+".SignaledStart")
	return
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	testCallbackLog = append(testCallbackLog, testCallbacksInterface.name+".SignaledFinish")
	return
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) Down(confMap conf.ConfMap) (err error) {
	testCallbackLog = append(testCallbackLog, testCallbacksInterface.name+".Down")
	return
}

func TestAPI(t *testing.T) {
	confMap, err := conf.MakeConfMapFromStrings(testConfStrings)
	require.NoError(t, err)

	assert.Equal(t, []string{"logger", "testA", "testB", "testC"}, Dump())

	testCallbackLog = nil
	require.NoError(t, Up(confMap))
	assert.Equal(t, []string{"A.Up", "B.Up", "C.Up"}, testCallbackLog)

	assert.Error(t, Up(confMap), "second Up() must fail")

	testCallbackLog = nil
	require.NoError(t, Signaled(confMap))
	assert.Equal(t, []string{
		"C.SignaledStart", "B.SignaledStart", "A.SignaledStart",
		"A.SignaledFinish", "B.SignaledFinish", "C.SignaledFinish",
	}, testCallbackLog)

	testCallbackLog = nil
	require.NoError(t, Down(confMap))
	assert.Equal(t, []string{
		"C.SignaledStart", "B.SignaledStart", "A.SignaledStart",
		"C.Down", "B.Down", "A.Down",
	}, testCallbackLog)

	assert.Error(t, Down(confMap), "Down() while not up must fail")
	assert.Error(t, Signaled(confMap), "Signaled() while not up must fail")
}

func TestUpUnwind(t *testing.T) {
	confMap, err := conf.MakeConfMapFromStrings(testConfStrings)
	require.NoError(t, err)

	testCallbacksB.failUp = true
	defer func() { testCallbacksB.failUp = false }()

	testCallbackLog = nil
	err = Up(confMap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "testB.Up() failed")

	// testA (and logger) were Up so are taken back Down
	assert.Equal(t, []string{"A.Up", "B.Up", "A.Down"}, testCallbackLog)

	// a failed Up() leaves transitions down so a retry is possible
	testCallbacksB.failUp = false
	testCallbackLog = nil
	require.NoError(t, Up(confMap))
	require.NoError(t, Down(confMap))
}
