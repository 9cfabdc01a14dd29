// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/NVIDIA/pgas/conf"
)

var (
	logFile       *os.File
	logTargetLock sync.Mutex
	logTargets    multiWriter
)

// multiWriter fans each formatted log entry out to every added io.Writer
type multiWriter struct {
	writers []io.Writer
}

func (mw *multiWriter) addWriter(writer io.Writer) {
	mw.writers = append(mw.writers, writer)
}

func (mw *multiWriter) Write(p []byte) (n int, err error) {
	logTargetLock.Lock()
	defer logTargetLock.Unlock()

	for _, writer := range mw.writers {
		n, err = writer.Write(p)
		if nil != err {
			return
		}
	}
	n = len(p)
	return
}

// Up configures logrus from the [Logging] section of confMap
func Up(confMap conf.ConfMap) (err error) {
	log.SetFormatter(&log.TextFormatter{DisableColors: true})

	logTargetLock.Lock()
	logTargets = multiWriter{}
	logTargetLock.Unlock()

	logFilePath, _ := confMap.FetchOptionValueString("Logging", "LogFilePath")
	if "" != logFilePath {
		logFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if nil != err {
			log.Errorf("couldn't open log file: %v", err)
			return
		}
		logTargets.addWriter(logFile)
	}

	logToConsole, err := confMap.FetchOptionValueBool("Logging", "LogToConsole")
	if nil != err {
		logToConsole = ("" == logFilePath)
		err = nil
	}
	if logToConsole {
		logTargets.addWriter(os.Stderr)
	}

	log.SetOutput(&logTargets)

	// logrus always runs wide open; this package decides what to emit
	log.SetLevel(log.DebugLevel)

	applyLoggingLevels(confMap)

	return
}

// SignaledStart is a no-op; logging continues unchanged while the other packages reconfigure
func SignaledStart(confMap conf.ConfMap) (err error) {
	return
}

// SignaledFinish re-reads the trace and debug settings
func SignaledFinish(confMap conf.ConfMap) (err error) {
	applyLoggingLevels(confMap)
	return
}

func Down(confMap conf.ConfMap) (err error) {
	log.SetOutput(os.Stderr)

	if nil != logFile {
		err = logFile.Close()
		logFile = nil
	}

	return
}

func applyLoggingLevels(confMap conf.ConfMap) {
	traceConfSlice, _ := confMap.FetchOptionValueStringSlice("Logging", "TraceLevelLogging")
	setTraceLoggingLevel(traceConfSlice)

	debugConfSlice, _ := confMap.FetchOptionValueStringSlice("Logging", "DebugLevelLogging")
	setDebugLoggingLevel(debugConfSlice)
}

// AddLogTarget adds another destination for formatted log entries.
//
// Up() must be called before this function is used.
func AddLogTarget(writer io.Writer) {
	logTargetLock.Lock()
	logTargets.addWriter(writer)
	logTargetLock.Unlock()
}

// LogBuffer captures the most recent log entries. Useful for writing test cases.
type LogBuffer struct {
	sync.Mutex
	LogEntries   []string // most recent log entry is [0]
	TotalEntries int
}

type LogTarget struct {
	LogBuf *LogBuffer
}

// Init prepares a LogTarget to hold up to nEntry log entries
func (target *LogTarget) Init(nEntry int) {
	target.LogBuf = &LogBuffer{LogEntries: make([]string, nEntry)}
}

func (target LogTarget) Write(p []byte) (n int, err error) {
	target.LogBuf.Lock()
	defer target.LogBuf.Unlock()

	target.LogBuf.TotalEntries++

	entries := target.LogBuf.LogEntries
	if 0 < len(entries) {
		copy(entries[1:], entries[:len(entries)-1])
		entries[0] = strings.TrimRight(string(p), " \n")
	}

	n = len(p)
	return
}
