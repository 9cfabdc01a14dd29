// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package halter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/pgas/conf"
	"github.com/NVIDIA/pgas/transitions"
)

var (
	testHaltErr error
)

func testHalt(err error) {
	testHaltErr = err
}

func testSetup(t *testing.T, confStrings []string) (confMap conf.ConfMap) {
	var err error

	confStrings = append(confStrings, "Logging.LogFilePath=/dev/null", "Logging.LogToConsole=false")

	confMap, err = conf.MakeConfMapFromStrings(confStrings)
	require.NoError(t, err)
	require.NoError(t, transitions.Up(confMap))

	ConfigureTestModeHaltCB(testHalt)

	t.Cleanup(func() {
		ConfigureTestModeHaltCB(nil)
		assert.NoError(t, transitions.Down(confMap))
	})

	return
}

func TestAPI(t *testing.T) {
	testSetup(t, []string{})

	assert.Len(t, Dump(), 0, "Dump() unexpectedly non-empty at start-up")

	testHaltErr = nil
	Arm("halter.testHaltLabel0", 1)
	require.Error(t, testHaltErr)
	assert.Equal(t, "halter.Arm(haltLabelString='halter.testHaltLabel0',) - label unknown", testHaltErr.Error())
	assert.Len(t, Dump(), 0)

	testHaltErr = nil
	Arm("halter.testHaltLabel1", 0)
	require.Error(t, testHaltErr)
	assert.Equal(t, "halter.Arm(haltLabel==halter.testHaltLabel1,) called with haltAfterCount==0", testHaltErr.Error())

	Arm("halter.testHaltLabel1", 1)
	assert.Equal(t, map[string]uint32{"halter.testHaltLabel1": 1}, Dump())

	Arm("halter.testHaltLabel2", 2)
	assert.Equal(t, map[string]uint32{"halter.testHaltLabel1": 1, "halter.testHaltLabel2": 2}, Dump())

	testHaltErr = nil
	Disarm("halter.testHaltLabel0")
	require.Error(t, testHaltErr)
	assert.Equal(t, "halter.Disarm(haltLabelString='halter.testHaltLabel0') - label unknown", testHaltErr.Error())

	Disarm("halter.testHaltLabel1")
	assert.Equal(t, map[string]uint32{"halter.testHaltLabel2": 2}, Dump())

	testHaltErr = nil
	Trigger(apiTestHaltLabel2)
	assert.NoError(t, testHaltErr)
	assert.Equal(t, map[string]uint32{"halter.testHaltLabel2": 1}, Dump())

	Trigger(apiTestHaltLabel2)
	require.Error(t, testHaltErr)
	assert.Equal(t, "halter.Trigger(haltLabelString==halter.testHaltLabel2) triggered HALT", testHaltErr.Error())
	assert.Len(t, Dump(), 0, "a fired trigger is disarmed")

	// an unarmed label never halts
	testHaltErr = nil
	Trigger(CacheTableEvict)
	assert.NoError(t, testHaltErr)

	assert.Equal(t, HaltLabelStrings, List())
}

func TestHalt(t *testing.T) {
	testSetup(t, []string{})

	testHaltErr = nil
	Halt(fmt.Errorf("invariant violated"))
	require.Error(t, testHaltErr)
	assert.Equal(t, "invariant violated", testHaltErr.Error())

	Haltf("unknown protocol %q", "mesi")
	assert.Equal(t, "unknown protocol \"mesi\"", testHaltErr.Error())
}

func TestArmedTriggersFromConf(t *testing.T) {
	testSetup(t, []string{"Halter.ArmedTriggers=delegate.wiUnlock:3,cachetable.evict:1"})

	assert.Equal(t, map[string]uint32{"delegate.wiUnlock": 3, "cachetable.evict": 1}, Dump())

	testHaltErr = nil
	Trigger(CacheTableEvict)
	require.Error(t, testHaltErr)
}

func TestArmedTriggersFromConfMalformed(t *testing.T) {
	var callbacks transitionsCallbackInterfaceStruct

	for _, bad := range []string{"delegate.wiUnlock", "delegate.wiUnlock:0", "no.suchLabel:1"} {
		confMap, err := conf.MakeConfMapFromStrings([]string{"Halter.ArmedTriggers=" + bad})
		require.NoError(t, err)
		assert.Error(t, callbacks.Up(confMap), bad)
	}
}
