// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package transitions sequences start-up, reconfiguration and shutdown of the
// packages making up the runtime.
package transitions

import (
	"github.com/NVIDIA/pgas/conf"
)

// Callbacks is the interface implemented by each package desiring notification of
// configuration changes. Each such package should implement a struct with pointer
// receivers for each API listed below even when there is no interest in being
// notified of a particular condition.
//
// By calling transitions.Register() in the package's init() func, the proper order
// of registration will be ensured. In specific, the following callbacks will be
// issued in the same order as package init() func calls have registered:
//
//   Up()
//   SignaledFinish()
//
// By contrast, the following callbacks will be issued in the reverse order as package
// init() func calls have registered:
//
//   SignaledStart()
//   Down()
//
type Callbacks interface {
	Up(confMap conf.ConfMap) (err error)
	SignaledStart(confMap conf.ConfMap) (err error)
	SignaledFinish(confMap conf.ConfMap) (err error)
	Down(confMap conf.ConfMap) (err error)
}

// Register should be called from a package's init() func should the package be interested
// in one or more of the callbacks that they will receive. Each callback func should receive
// a struct implementing the Callbacks interface by reference.
//
// As an example, consider the following:
//
//   package foo
//
//   import "github.com/NVIDIA/pgas/conf"
//   import "github.com/NVIDIA/pgas/transitions"
//
//   type transitionsCallbackInterfaceStruct struct {
//   }
//
//   var transitionsCallbackInterface transitionsCallbackInterfaceStruct
//
//   func init() {
//       transitions.Register("foo", &transitionsCallbackInterface)
//   }
//
//   func (transitionsCallbackInterface *transitionsCallbackInterfaceStruct) Up(confMap conf.ConfMap) (err error) {
//       // Perform start-up initialization derived from confMap
//       // ...set err at some point
//       return
//   }
//
//   ...
//
// A special exception to the need for registration is the package logger. Package
// transitions makes an explicit reference to logging functions in package logger and,
// as such, will perform the registration for package logger itself.
//
func Register(packageName string, callbacks Callbacks) {
	register(packageName, callbacks)
}

// Up should be called at startup by the main() (or setup func) of each program including
// any of the packages needing callback notifications. This will trigger Up() callbacks
// to each of the packages that have registered with package transitions starting with
// package logger (that was registered automatically by package transitions).
//
// Should any Up() callback fail, Down() callbacks are issued (in reverse order) to
// those packages whose Up() callback had already succeeded.
//
func Up(confMap conf.ConfMap) (err error) {
	return up(confMap)
}

// Signaled should be called when the configuration changes (e.g. on SIGHUP) while
// the runtime is up. SignaledStart() callbacks are issued in reverse registration
// order followed by SignaledFinish() callbacks in registration order.
//
func Signaled(confMap conf.ConfMap) (err error) {
	return signaled(confMap)
}

// Down should be called just before shutdown by the main() (or teardown func) of each
// program including any of the packages needing callback notifications. This will trigger
// SignaledStart() and then Down() callbacks to each of the packages that have registered
// with package transitions ending with package logger.
//
func Down(confMap conf.ConfMap) (err error) {
	return down(confMap)
}

// Dump returns the names of registered packages in registration order
func Dump() (packageNames []string) {
	return dump()
}
