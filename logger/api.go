// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package logger provides logging wrappers
//
// These wrappers allow us to standardize logging while still using a third-party
// logging package.
//
// This package is currently implemented on top of the sirupsen/logrus package:
//   https://github.com/sirupsen/logrus
//
// The APIs here add package, calling function and goroutine id to all logs.
// Since every task and every message handler of a partition runs on its own
// goroutine, the goroutine field is usually enough to untangle interleaved
// protocol traces.
//
// Trace and debug logs are enabled/disabled on a per package basis.
package logger

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/NVIDIA/pgas/utils"
)

type Level int

// Our logging levels
//
// We have more detailed logging levels than logrus. When we log we map our
// levels to the logrus ones before calling logrus APIs.
const (
	// PanicLevel corresponds to logrus.PanicLevel; logrus will log and then call panic
	PanicLevel Level = iota
	// FatalLevel corresponds to logrus.FatalLevel; logrus will log and then call os.Exit(1)
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel

	// TraceLevel logs trace the success path through the protocols.
	// When enabled for a package, these are logged at logrus.InfoLevel.
	TraceLevel

	// DebugLevel is very verbose and gated by package + debug tag.
	// When enabled, these are logged at logrus.DebugLevel.
	DebugLevel
)

func (level Level) String() string {
	switch level {
	case PanicLevel:
		return "panic"
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	}
	return "unknown"
}

// Debug tags
const (
	DbgInternal string = "debug_internal"
	DbgTesting  string = "debug_test"
)

// Log fields supported by logger
const (
	packageKey  string = "package"
	functionKey string = "function"
	errorKey    string = "error"
	gidKey      string = "goroutine"
)

var (
	settingsLock sync.RWMutex

	traceLevelEnabled = false
	debugLevelEnabled = false

	// packageTraceSettings lists the packages for which Logging.TraceLevelLogging
	// may enable trace logs. A package absent from this map never traces.
	packageTraceSettings = map[string]bool{
		"cachetable":  false,
		"cluster":     false,
		"delegate":    false,
		"halter":      false,
		"heap":        false,
		"logger":      false,
		"main":        false,
		"ownermeta":   false,
		"transitions": false,
	}

	// packageDebugSettings lists the enabled debug tags of each package.
	packageDebugSettings = map[string][]string{
		"cachetable": {},
		"cluster":    {},
		"delegate":   {},
	}
)

func setTraceLoggingLevel(confStrSlice []string) {
	settingsLock.Lock()

	for pkg := range packageTraceSettings {
		packageTraceSettings[pkg] = false
	}
	traceLevelEnabled = false

HandlePkgs:
	for _, pkg := range confStrSlice {
		switch pkg {
		case "none":
			traceLevelEnabled = false
			break HandlePkgs
		default:
			if _, ok := packageTraceSettings[pkg]; ok {
				packageTraceSettings[pkg] = true
				traceLevelEnabled = true
			}
		}
	}

	enabled := make([]string, 0)
	for pkg, isEnabled := range packageTraceSettings {
		if isEnabled {
			enabled = append(enabled, pkg)
		}
	}

	settingsLock.Unlock()

	for _, pkg := range enabled {
		Infof("Package %v trace logging is enabled.", pkg)
	}
}

func setDebugLoggingLevel(confStrSlice []string) {
	settingsLock.Lock()

	for pkg := range packageDebugSettings {
		packageDebugSettings[pkg] = []string{}
	}
	debugLevelEnabled = false

HandlePkgs:
	for _, pkg := range confStrSlice {
		switch pkg {
		case "none":
			debugLevelEnabled = false
			break HandlePkgs
		default:
			if _, ok := packageDebugSettings[pkg]; ok {
				packageDebugSettings[pkg] = []string{DbgInternal, DbgTesting}
				debugLevelEnabled = true
			}
		}
	}

	settingsLock.Unlock()
}

func traceEnabled(pkg string) (isEnabled bool) {
	settingsLock.RLock()
	isEnabled = packageTraceSettings[pkg]
	settingsLock.RUnlock()
	return
}

func debugEnabled(pkg string, debugID string) bool {
	settingsLock.RLock()
	defer settingsLock.RUnlock()

	for _, id := range packageDebugSettings[pkg] {
		if id == debugID {
			return true
		}
	}
	return false
}

func logEnabled(level Level) bool {
	settingsLock.RLock()
	defer settingsLock.RUnlock()

	if (level == TraceLevel) && !traceLevelEnabled {
		return false
	}
	if (level == DebugLevel) && !debugLevelEnabled {
		return false
	}
	return true
}

// FuncCtx caches the package/function fields so they are extracted once per function.
type FuncCtx struct {
	funcContext *log.Entry
}

func (ctx *FuncCtx) getPackage() string {
	pkg, ok := ctx.funcContext.Data[packageKey].(string)
	if ok {
		return pkg
	}
	return ""
}

func newFuncCtx(level int) (ctx *FuncCtx) {
	fn, pkg, gid := utils.GetFuncPackage(level + 1)

	fields := make(log.Fields)
	fields[functionKey] = fn
	fields[packageKey] = pkg
	fields[gidKey] = gid

	ctx = &FuncCtx{funcContext: log.WithFields(fields)}
	return
}

func newFuncCtxWithField(level int, key string, value interface{}) (ctx *FuncCtx) {
	ctx = newFuncCtx(level + 1)
	ctx.funcContext = ctx.funcContext.WithField(key, value)
	return
}

const backtraceOneLevel int = 1

func (ctx FuncCtx) log(level Level, args ...interface{}) {
	if (level == TraceLevel) && !traceEnabled(ctx.getPackage()) {
		return
	}

	switch level {
	case PanicLevel:
		ctx.funcContext.Panic(args...)
	case FatalLevel:
		ctx.funcContext.Fatal(args...)
	case ErrorLevel:
		ctx.funcContext.Error(args...)
	case WarnLevel:
		ctx.funcContext.Warn(args...)
	case InfoLevel, TraceLevel:
		ctx.funcContext.Info(args...)
	case DebugLevel:
		ctx.funcContext.Debug(args...)
	}
}

func (ctx FuncCtx) logWithID(level Level, id string, args ...interface{}) {
	if (level == DebugLevel) && !debugEnabled(ctx.getPackage(), id) {
		return
	}
	ctx.log(level, args...)
}

// EXTERNAL logging APIs
//
// Logger intentionally does not provide a Debug()/Debugf() API; use DebugfID() instead.

func DebugfID(id string, format string, args ...interface{}) {
	if !logEnabled(DebugLevel) {
		return
	}
	newFuncCtx(backtraceOneLevel).logWithID(DebugLevel, id, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	newFuncCtx(backtraceOneLevel).log(ErrorLevel, fmt.Sprintf(format, args...))
}

func Fatalf(format string, args ...interface{}) {
	newFuncCtx(backtraceOneLevel).log(FatalLevel, fmt.Sprintf(format, args...))
}

func Infof(format string, args ...interface{}) {
	newFuncCtx(backtraceOneLevel).log(InfoLevel, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...interface{}) {
	if !logEnabled(TraceLevel) {
		return
	}
	newFuncCtx(backtraceOneLevel).log(TraceLevel, fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	newFuncCtx(backtraceOneLevel).log(WarnLevel, fmt.Sprintf(format, args...))
}

func ErrorfWithError(err error, format string, args ...interface{}) {
	newFuncCtxWithField(backtraceOneLevel, errorKey, err).log(ErrorLevel, fmt.Sprintf(format, args...))
}

func FatalfWithError(err error, format string, args ...interface{}) {
	newFuncCtxWithField(backtraceOneLevel, errorKey, err).log(FatalLevel, fmt.Sprintf(format, args...))
}

func InfofWithError(err error, format string, args ...interface{}) {
	newFuncCtxWithField(backtraceOneLevel, errorKey, err).log(InfoLevel, fmt.Sprintf(format, args...))
}

func PanicfWithError(err error, format string, args ...interface{}) {
	newFuncCtxWithField(backtraceOneLevel, errorKey, err).log(PanicLevel, fmt.Sprintf(format, args...))
}

func WarnfWithError(err error, format string, args ...interface{}) {
	newFuncCtxWithField(backtraceOneLevel, errorKey, err).log(WarnLevel, fmt.Sprintf(format, args...))
}

// TraceEnter logs entry to the calling function and returns a FuncCtx to pass to TraceExit*()
func TraceEnter(argsPrefix string, args ...interface{}) (ctx FuncCtx) {
	if !logEnabled(TraceLevel) {
		return
	}
	ctx = *newFuncCtx(backtraceOneLevel)
	ctx.traceInternal(">> called", argsPrefix, args...)
	return
}

func (ctx *FuncCtx) TraceExit(argsPrefix string, args ...interface{}) {
	if !logEnabled(TraceLevel) {
		return
	}
	if nil == ctx.funcContext {
		ctx.funcContext = newFuncCtx(backtraceOneLevel).funcContext
	}
	ctx.traceInternal("<< returning", argsPrefix, args...)
}

func (ctx *FuncCtx) TraceExitErr(argsPrefix string, err error, args ...interface{}) {
	if !logEnabled(TraceLevel) {
		return
	}
	if nil == ctx.funcContext {
		ctx.funcContext = newFuncCtx(backtraceOneLevel).funcContext
	}
	// the error field is added to a copy in case the caller reuses ctx
	errCtx := FuncCtx{funcContext: ctx.funcContext.WithField(errorKey, err)}
	errCtx.traceInternal("<< returning", argsPrefix, args...)
}

func (ctx *FuncCtx) traceInternal(formatPrefix string, argsPrefix string, args ...interface{}) {
	format := formatPrefix + " %s"
	for range args {
		format += " %+v"
	}
	ctx.log(TraceLevel, fmt.Sprintf(format, append([]interface{}{argsPrefix}, args...)...))
}
