// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package halter stops the process on unrecoverable runtime conditions.
//
// Halt() is used for conditions the runtime treats as fatal: an unknown
// protocol selector, a typed access that disagrees with the allocation, or a
// violated protocol invariant. Arm()/Trigger() additionally allow a halt to be
// injected at a named checkpoint after a given number of passes.
package halter

import (
	"fmt"
	"os"
	"syscall"

	"github.com/NVIDIA/pgas/logger"
)

// Note 1: Following const block and HaltLabelStrings should be kept in sync
// Note 2: HaltLabelStrings should be easily parseable as URL components

const (
	apiTestHaltLabel1 = iota
	apiTestHaltLabel2
	CacheTableEvict
	DelegateTardisRenewStale
	DelegateWIInvalidateBroadcast
	DelegateWIUnlock
)

var (
	HaltLabelStrings = []string{
		"halter.testHaltLabel1",
		"halter.testHaltLabel2",
		"cachetable.evict",
		"delegate.tardisRenewStale",
		"delegate.wiInvalidateBroadcast",
		"delegate.wiUnlock",
	}
)

// Halt reports err and stops the process (or, in test mode, hands err to the test callback).
//
// In test mode Halt returns; callers must not continue the operation that failed.
func Halt(err error) {
	haltWithErr(err)
}

// Haltf is Halt(fmt.Errorf(format, args...))
func Haltf(format string, args ...interface{}) {
	haltWithErr(fmt.Errorf(format, args...))
}

// Arm sets up a HALT on the haltAfterCount'd call to Trigger()
func Arm(haltLabelString string, haltAfterCount uint32) {
	var err error

	globals.Lock()
	haltLabel, ok := globals.triggerNamesToNumbers[haltLabelString]
	switch {
	case !ok:
		err = fmt.Errorf("halter.Arm(haltLabelString='%v',) - label unknown", haltLabelString)
	case 0 == haltAfterCount:
		err = fmt.Errorf("halter.Arm(haltLabel==%v,) called with haltAfterCount==0", haltLabelString)
	default:
		globals.armedTriggers[haltLabel] = haltAfterCount
	}
	globals.Unlock()

	if nil != err {
		haltWithErr(err)
	}
}

// Disarm removes a previously armed trigger via a call to Arm()
func Disarm(haltLabelString string) {
	globals.Lock()
	haltLabel, ok := globals.triggerNamesToNumbers[haltLabelString]
	if ok {
		delete(globals.armedTriggers, haltLabel)
	}
	globals.Unlock()

	if !ok {
		haltWithErr(fmt.Errorf("halter.Disarm(haltLabelString='%v') - label unknown", haltLabelString))
	}
}

// Trigger decrements the haltAfterCount if armed and, should it reach 0, HALTs
func Trigger(haltLabel uint32) {
	globals.Lock()
	numTriggersRemaining, armed := globals.armedTriggers[haltLabel]
	if !armed {
		globals.Unlock()
		return
	}
	numTriggersRemaining--
	if 0 < numTriggersRemaining {
		globals.armedTriggers[haltLabel] = numTriggersRemaining
		globals.Unlock()
		return
	}
	delete(globals.armedTriggers, haltLabel)
	haltLabelString := globals.triggerNumbersToNames[haltLabel]
	globals.Unlock()

	haltWithErr(fmt.Errorf("halter.Trigger(haltLabelString==%v) triggered HALT", haltLabelString))
}

// Dump returns a map of currently armed triggers and their remaining trigger count
func Dump() (armedTriggers map[string]uint32) {
	globals.Lock()
	armedTriggers = make(map[string]uint32)
	for k, v := range globals.armedTriggers {
		armedTriggers[globals.triggerNumbersToNames[k]] = v
	}
	globals.Unlock()
	return
}

// List returns a slice of available triggers
func List() (availableTriggers []string) {
	availableTriggers = make([]string, len(HaltLabelStrings))
	copy(availableTriggers, HaltLabelStrings)
	return
}

func haltWithErr(err error) {
	globals.Lock()
	testModeHaltCB := globals.testModeHaltCB
	globals.Unlock()

	if nil != testModeHaltCB {
		testModeHaltCB(err)
		return
	}

	logger.ErrorfWithError(err, "HALT")
	fmt.Println(err)
	os.Exit(int(syscall.SIGKILL))
}
