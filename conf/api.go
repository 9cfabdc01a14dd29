// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package conf parses the .INI-style configuration consumed by every other package.
//
// A ConfMap is accessed via confMap[sectionName][optionName][valueIndex] or via the
// Fetch*() methods below. A file to load looks like:
//
//   [Cluster]
//   Partitions : 4
//
//   # A comment on its own line starting with '#'
//   ; A comment on its own line starting with ';'
//
//   [Coherence]          ; a trailing comment
//   Protocol = tardis    # another trailing comment
//   Lease    = 10
//
// Individual options may also be supplied (e.g. on the command line) as
//
//   Coherence.Protocol=wi
//
package conf

import (
	"bufio"
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type ConfMapOption []string
type ConfMapSection map[string]ConfMapOption
type ConfMap map[string]ConfMapSection

const assignment = "([ \t]*[=:][ \t]*)"
const separator = "([ \t]+|([ \t]*,[ \t]*))"
const token = "([0-9A-Za-z_\\*\\-/:\\.\\[\\]]+)"

var stringRE = regexp.MustCompile("\\A" + token + "(\\.)" + token + assignment + "(" + token + "(" + separator + token + ")*)?\\z")
var sectionHeaderLineRE = regexp.MustCompile("\\A\\[" + token + "\\]\\z")
var optionLineRE = regexp.MustCompile("\\A" + token + assignment + "(" + token + "(" + separator + token + ")*)?\\z")
var assignmentRE = regexp.MustCompile(assignment)
var separatorRE = regexp.MustCompile(separator)

// MakeConfMap returns an newly created empty ConfMap
func MakeConfMap() (confMap ConfMap) {
	confMap = make(ConfMap)
	return
}

// MakeConfMapFromFile returns a newly created ConfMap loaded with the contents of the confFilePath-specified file
func MakeConfMapFromFile(confFilePath string) (confMap ConfMap, err error) {
	confMap = MakeConfMap()
	err = confMap.UpdateFromFile(confFilePath)
	return
}

// MakeConfMapFromStrings returns a newly created ConfMap loaded with the contents specified in confStrings
func MakeConfMapFromStrings(confStrings []string) (confMap ConfMap, err error) {
	confMap = MakeConfMap()
	err = confMap.UpdateFromStrings(confStrings)
	if nil != err {
		err = fmt.Errorf("Error building confMap from conf strings: %v", err)
	}
	return
}

// UpdateFromString modifies a pre-existing ConfMap based on an update
// specified in confString (e.g., from an extra command-line argument)
func (confMap ConfMap) UpdateFromString(confString string) (err error) {
	trimmed := strings.Trim(confString, " \t")

	if 0 == len(trimmed) {
		err = fmt.Errorf("trimmed confString: \"%v\" was found to be empty", confString)
		return
	}
	if !stringRE.MatchString(trimmed) {
		err = fmt.Errorf("malformed confString: \"%v\"", confString)
		return
	}

	sectionNameAndRest := strings.SplitN(trimmed, ".", 2)

	confMap.setOption(sectionNameAndRest[0], sectionNameAndRest[1])

	return
}

// UpdateFromStrings applies UpdateFromString() to each of confStrings in order
func (confMap ConfMap) UpdateFromStrings(confStrings []string) (err error) {
	for _, confString := range confStrings {
		err = confMap.UpdateFromString(confString)
		if nil != err {
			return
		}
	}
	return
}

// UpdateFromFile modifies a pre-existing ConfMap based on updates specified in confFilePath ("-" means stdin)
func (confMap ConfMap) UpdateFromFile(confFilePath string) (err error) {
	var (
		confFileBytes      []byte
		currentSectionName string
		lineNumber         int
	)

	if "-" == confFilePath {
		confFileBytes, err = ioutil.ReadAll(os.Stdin)
	} else {
		confFileBytes, err = ioutil.ReadFile(confFilePath)
	}
	if nil != err {
		return
	}

	scanner := bufio.NewScanner(bytes.NewReader(confFileBytes))

	for scanner.Scan() {
		lineNumber++

		line := strings.SplitN(scanner.Text(), ";", 2)[0]
		line = strings.SplitN(line, "#", 2)[0]
		line = strings.Trim(line, " \t")

		if 0 == len(line) {
			continue
		}

		if sectionHeaderLineRE.MatchString(line) {
			currentSectionName = strings.Trim(line, "[]")
			continue
		}

		if "" == currentSectionName {
			err = fmt.Errorf("file %v line %v: option found before any Section Name", confFilePath, lineNumber)
			return
		}
		if !optionLineRE.MatchString(line) {
			err = fmt.Errorf("file %v line %v: malformed line '%v'", confFilePath, lineNumber, line)
			return
		}

		confMap.setOption(currentSectionName, line)
	}

	err = scanner.Err()

	return
}

// setOption stores "optionName <assignment> values" in sectionName, creating the section if needed
func (confMap ConfMap) setOption(sectionName string, optionPayload string) {
	nameAndValues := assignmentRE.Split(optionPayload, 2)

	optionValues := separatorRE.Split(nameAndValues[1], -1)
	if (1 == len(optionValues)) && ("" == optionValues[0]) {
		optionValues = []string{}
	}

	section, found := confMap[sectionName]
	if !found {
		section = make(ConfMapSection)
		confMap[sectionName] = section
	}

	section[nameAndValues[0]] = optionValues
}

// FetchOptionValueStringSlice returns [sectionName]optionName's string values
func (confMap ConfMap) FetchOptionValueStringSlice(sectionName string, optionName string) (optionValue []string, err error) {
	optionValue = []string{}

	section, ok := confMap[sectionName]
	if !ok {
		err = fmt.Errorf("[%v] missing", sectionName)
		return
	}

	option, ok := section[optionName]
	if !ok {
		err = fmt.Errorf("[%v]%v missing", sectionName, optionName)
		return
	}

	optionValue = option

	return
}

// FetchOptionValueString returns [sectionName]optionName's single string value
func (confMap ConfMap) FetchOptionValueString(sectionName string, optionName string) (optionValue string, err error) {
	optionValueSlice, err := confMap.FetchOptionValueStringSlice(sectionName, optionName)
	if nil != err {
		return
	}

	if 1 != len(optionValueSlice) {
		err = fmt.Errorf("[%v]%v must be single-valued", sectionName, optionName)
		return
	}

	optionValue = optionValueSlice[0]

	return
}

// FetchOptionValueBool returns [sectionName]optionName's single string value converted to a bool
func (confMap ConfMap) FetchOptionValueBool(sectionName string, optionName string) (optionValue bool, err error) {
	optionValueString, err := confMap.FetchOptionValueString(sectionName, optionName)
	if nil != err {
		return
	}

	switch strings.ToLower(optionValueString) {
	case "yes", "on", "true":
		optionValue = true
	case "no", "off", "false":
		optionValue = false
	default:
		err = fmt.Errorf("Couldn't interpret %q as boolean (expected one of 'true'/'false'/'yes'/'no'/'on'/'off')", optionValueString)
	}

	return
}

// FetchOptionValueUint16 returns [sectionName]optionName's single string value converted to a uint16
func (confMap ConfMap) FetchOptionValueUint16(sectionName string, optionName string) (optionValue uint16, err error) {
	u64, err := confMap.fetchOptionValueUint(sectionName, optionName, 16)
	optionValue = uint16(u64)
	return
}

// FetchOptionValueUint32 returns [sectionName]optionName's single string value converted to a uint32
func (confMap ConfMap) FetchOptionValueUint32(sectionName string, optionName string) (optionValue uint32, err error) {
	u64, err := confMap.fetchOptionValueUint(sectionName, optionName, 32)
	optionValue = uint32(u64)
	return
}

// FetchOptionValueUint64 returns [sectionName]optionName's single string value converted to a uint64
func (confMap ConfMap) FetchOptionValueUint64(sectionName string, optionName string) (optionValue uint64, err error) {
	optionValue, err = confMap.fetchOptionValueUint(sectionName, optionName, 64)
	return
}

func (confMap ConfMap) fetchOptionValueUint(sectionName string, optionName string, bitSize int) (optionValue uint64, err error) {
	optionValueString, err := confMap.FetchOptionValueString(sectionName, optionName)
	if nil != err {
		return
	}

	optionValue, err = strconv.ParseUint(optionValueString, 10, bitSize)
	if nil != err {
		err = fmt.Errorf("[%v]%v: %v", sectionName, optionName, err)
	}

	return
}

// FetchOptionValueDuration returns [sectionName]optionName's single string value converted to a time.Duration
//
// A value without a unit suffix is interpreted as seconds.
func (confMap ConfMap) FetchOptionValueDuration(sectionName string, optionName string) (optionValue time.Duration, err error) {
	optionValueString, err := confMap.FetchOptionValueString(sectionName, optionName)
	if nil != err {
		return
	}

	if seconds, parseErr := strconv.ParseFloat(optionValueString, 64); nil == parseErr {
		optionValue = time.Duration(seconds * float64(time.Second))
		return
	}

	optionValue, err = time.ParseDuration(optionValueString)
	if nil != err {
		err = fmt.Errorf("[%v]%v: %v", sectionName, optionName, err)
	}

	return
}

// Dump returns the ConfMap as "Section.Option=values" strings sorted by Section then Option
func (confMap ConfMap) Dump() (confStrings []string) {
	confStrings = make([]string, 0)

	for sectionName, section := range confMap {
		for optionName, option := range section {
			confStrings = append(confStrings, sectionName+"."+optionName+"="+strings.Join(option, ","))
		}
	}

	sort.Strings(confStrings)

	return
}
