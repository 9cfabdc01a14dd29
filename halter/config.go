// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package halter

import (
	"strconv"
	"strings"
	"sync"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/conf"
	"github.com/NVIDIA/pgas/transitions"
)

type globalsStruct struct {
	sync.Mutex
	armedTriggers         map[uint32]uint32 // key: haltLabel; value: haltAfterCount (remaining)
	triggerNamesToNumbers map[string]uint32
	triggerNumbersToNames map[uint32]string
	testModeHaltCB        func(err error)
}

var globals globalsStruct

type transitionsCallbackInterfaceStruct struct{}

var transitionsCallbackInterface transitionsCallbackInterfaceStruct

func init() {
	globals.armedTriggers = make(map[uint32]uint32)
	globals.triggerNamesToNumbers = make(map[string]uint32)
	globals.triggerNumbersToNames = make(map[uint32]string)
	for i, s := range HaltLabelStrings {
		globals.triggerNamesToNumbers[s] = uint32(i)
		globals.triggerNumbersToNames[uint32(i)] = s
	}

	transitions.Register("halter", &transitionsCallbackInterface)
}

// Up clears any armed triggers then arms each "label:count" listed in Halter.ArmedTriggers
func (dummy *transitionsCallbackInterfaceStruct) Up(confMap conf.ConfMap) (err error) {
	globals.Lock()
	globals.armedTriggers = make(map[uint32]uint32)
	globals.Unlock()

	armedTriggers, _ := confMap.FetchOptionValueStringSlice("Halter", "ArmedTriggers")

	for _, armedTrigger := range armedTriggers {
		labelAndCount := strings.SplitN(armedTrigger, ":", 2)
		if 2 != len(labelAndCount) {
			err = blunder.NewError(blunder.InvalidArgError, "[Halter]ArmedTriggers entry %q must be label:count", armedTrigger)
			return
		}

		count, parseErr := strconv.ParseUint(labelAndCount[1], 10, 32)
		if (nil != parseErr) || (0 == count) {
			err = blunder.NewError(blunder.InvalidArgError, "[Halter]ArmedTriggers entry %q has bad count", armedTrigger)
			return
		}

		if _, ok := globals.triggerNamesToNumbers[labelAndCount[0]]; !ok {
			err = blunder.NewError(blunder.NotFoundError, "[Halter]ArmedTriggers label %q unknown", labelAndCount[0])
			return
		}

		Arm(labelAndCount[0], uint32(count))
	}

	return
}

func (dummy *transitionsCallbackInterfaceStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	return nil
}

func (dummy *transitionsCallbackInterfaceStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	return nil
}

func (dummy *transitionsCallbackInterfaceStruct) Down(confMap conf.ConfMap) (err error) {
	globals.Lock()
	globals.armedTriggers = make(map[uint32]uint32)
	globals.Unlock()
	return nil
}

// ConfigureTestModeHaltCB diverts halts to testHalt (nil restores process exit)
func ConfigureTestModeHaltCB(testHalt func(err error)) {
	globals.Lock()
	globals.testModeHaltCB = testHalt
	globals.Unlock()
}
