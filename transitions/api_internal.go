// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package transitions

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/NVIDIA/pgas/conf"
	"github.com/NVIDIA/pgas/logger"
)

type loggerCallbacksInterfaceStruct struct {
}

var loggerCallbacksInterface loggerCallbacksInterfaceStruct

type registrationItemStruct struct {
	packageName string
	callbacks   Callbacks
}

type globalsStruct struct {
	sync.Mutex       // protects registration{List|Set} and isUp
	registrationList *list.List
	registrationSet  map[string]*registrationItemStruct // Key: registrationItemStruct.packageName
	isUp             bool
}

var globals globalsStruct

func init() {
	globals.Lock()
	globals.registrationList = list.New()
	globals.registrationSet = make(map[string]*registrationItemStruct)
	globals.Unlock()

	Register("logger", &loggerCallbacksInterface)
}

func register(packageName string, callbacks Callbacks) {
	globals.Lock()
	_, alreadyRegisted := globals.registrationSet[packageName]
	if alreadyRegisted {
		globals.Unlock()
		logger.Fatalf("transitions.Register(%s,) called twice", packageName)
		return
	}
	registrationItem := &registrationItemStruct{packageName, callbacks}
	_ = globals.registrationList.PushBack(registrationItem)
	globals.registrationSet[packageName] = registrationItem
	globals.Unlock()
}

func up(confMap conf.ConfMap) (err error) {
	globals.Lock()
	defer globals.Unlock()

	defer func() {
		if nil == err {
			logger.Infof("transitions.Up() returning successfully")
		} else {
			// On the relatively good likelihood that at least logger.Up() worked...
			logger.Errorf("transitions.Up() returning with failure: %v", err)
		}
	}()

	if globals.isUp {
		err = fmt.Errorf("transitions.Up() called while already up")
		return
	}

	// Issue Callbacks.Up() calls from Front() to Back() of globals.registrationList

	registrationListElement := globals.registrationList.Front()

	for nil != registrationListElement {
		registrationItem := registrationListElement.Value.(*registrationItemStruct)
		logger.Tracef("transitions.Up() calling %s.Up()", registrationItem.packageName)
		err = registrationItem.callbacks.Up(confMap)
		if nil != err {
			logger.Errorf("transitions.Up() call to %s.Up() failed: %v", registrationItem.packageName, err)
			err = fmt.Errorf("%s.Up() failed: %v", registrationItem.packageName, err)
			unwindUp(confMap, registrationListElement.Prev())
			return
		}
		registrationListElement = registrationListElement.Next()
	}

	logger.Infof("Transitions Package Registration List: %v", dumpLocked())

	globals.isUp = true

	return
}

// unwindUp issues Down() callbacks from registrationListElement back to Front()
func unwindUp(confMap conf.ConfMap, registrationListElement *list.Element) {
	for nil != registrationListElement {
		registrationItem := registrationListElement.Value.(*registrationItemStruct)
		downErr := registrationItem.callbacks.Down(confMap)
		if nil != downErr {
			logger.Errorf("transitions.Up() unwind call to %s.Down() failed: %v", registrationItem.packageName, downErr)
		}
		registrationListElement = registrationListElement.Prev()
	}
}

func signaled(confMap conf.ConfMap) (err error) {
	globals.Lock()
	defer globals.Unlock()

	logger.Infof("transitions.Signaled() called")
	defer func() {
		if nil == err {
			logger.Infof("transitions.Signaled() returning successfully")
		} else {
			logger.Errorf("transitions.Signaled() returning with failure: %v", err)
		}
	}()

	if !globals.isUp {
		err = fmt.Errorf("transitions.Signaled() called while not up")
		return
	}

	err = signaledStart(confMap, "Signaled")
	if nil != err {
		return
	}

	// Issue Callbacks.SignaledFinish() calls from Front() to Back() of globals.registrationList

	registrationListElement := globals.registrationList.Front()

	for nil != registrationListElement {
		registrationItem := registrationListElement.Value.(*registrationItemStruct)
		logger.Tracef("transitions.Signaled() calling %s.SignaledFinish()", registrationItem.packageName)
		err = registrationItem.callbacks.SignaledFinish(confMap)
		if nil != err {
			logger.Errorf("transitions.Signaled() call to %s.SignaledFinish() failed: %v", registrationItem.packageName, err)
			err = fmt.Errorf("%s.SignaledFinish() failed: %v", registrationItem.packageName, err)
			return
		}
		registrationListElement = registrationListElement.Next()
	}

	return
}

// signaledStart issues Callbacks.SignaledStart() calls from Back() to Front() of globals.registrationList
func signaledStart(confMap conf.ConfMap, caller string) (err error) {
	registrationListElement := globals.registrationList.Back()

	for nil != registrationListElement {
		registrationItem := registrationListElement.Value.(*registrationItemStruct)
		logger.Tracef("transitions.%s() calling %s.SignaledStart()", caller, registrationItem.packageName)
		err = registrationItem.callbacks.SignaledStart(confMap)
		if nil != err {
			logger.Errorf("transitions.%s() call to %s.SignaledStart() failed: %v", caller, registrationItem.packageName, err)
			err = fmt.Errorf("%s.SignaledStart() failed: %v", registrationItem.packageName, err)
			return
		}
		registrationListElement = registrationListElement.Prev()
	}

	return
}

func down(confMap conf.ConfMap) (err error) {
	globals.Lock()
	defer globals.Unlock()

	logger.Infof("transitions.Down() called")
	defer func() {
		if nil != err {
			// On the relatively good likelihood that the failure occurred before calling logger.Down()...
			logger.Errorf("transitions.Down() returning with failure: %v", err)
		}
	}()

	if !globals.isUp {
		err = fmt.Errorf("transitions.Down() called while not up")
		return
	}

	err = signaledStart(confMap, "Down")
	if nil != err {
		return
	}

	// Issue Callbacks.Down() calls from Back() to Front() of globals.registrationList

	registrationListElement := globals.registrationList.Back()

	for nil != registrationListElement {
		registrationItem := registrationListElement.Value.(*registrationItemStruct)
		logger.Tracef("transitions.Down() calling %s.Down()", registrationItem.packageName)
		err = registrationItem.callbacks.Down(confMap)
		if nil != err {
			logger.Errorf("transitions.Down() call to %s.Down() failed: %v", registrationItem.packageName, err)
			err = fmt.Errorf("%s.Down() failed: %v", registrationItem.packageName, err)
			return
		}
		registrationListElement = registrationListElement.Prev()
	}

	globals.isUp = false

	return
}

func dump() (packageNames []string) {
	globals.Lock()
	packageNames = dumpLocked()
	globals.Unlock()
	return
}

func dumpLocked() (packageNames []string) {
	packageNames = make([]string, 0, globals.registrationList.Len())

	for registrationListElement := globals.registrationList.Front(); nil != registrationListElement; registrationListElement = registrationListElement.Next() {
		packageNames = append(packageNames, registrationListElement.Value.(*registrationItemStruct).packageName)
	}

	return
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) Up(confMap conf.ConfMap) (err error) {
	return logger.Up(confMap)
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	return logger.SignaledStart(confMap)
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	return logger.SignaledFinish(confMap)
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) Down(confMap conf.ConfMap) (err error) {
	return logger.Down(confMap)
}
