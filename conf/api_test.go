// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfFile(t *testing.T, contents string) (confFilePath string) {
	tempFile, err := ioutil.TempFile(os.TempDir(), "TestConfFile_")
	require.NoError(t, err)

	_, err = tempFile.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, tempFile.Close())

	t.Cleanup(func() { _ = os.Remove(tempFile.Name()) })

	confFilePath = tempFile.Name()
	return
}

func TestUpdateFromFile(t *testing.T) {
	confFilePath := writeTempConfFile(t, ""+
		"# A comment on its own line\n"+
		"[Cluster]\n"+
		"Partitions : 4 # trailing comment\n"+
		"\n"+
		"; Another comment\n"+
		"[Coherence] ; trailing comment\n"+
		"Protocol = tardis\n"+
		"Lease=10\n"+
		"TwoStageRenewal: yes\n"+
		"Empty =\n"+
		"List = a, b c,d\n")

	confMap, err := MakeConfMapFromFile(confFilePath)
	require.NoError(t, err)

	partitions, err := confMap.FetchOptionValueUint16("Cluster", "Partitions")
	assert.NoError(t, err)
	assert.Equal(t, uint16(4), partitions)

	protocol, err := confMap.FetchOptionValueString("Coherence", "Protocol")
	assert.NoError(t, err)
	assert.Equal(t, "tardis", protocol)

	lease, err := confMap.FetchOptionValueUint32("Coherence", "Lease")
	assert.NoError(t, err)
	assert.Equal(t, uint32(10), lease)

	twoStage, err := confMap.FetchOptionValueBool("Coherence", "TwoStageRenewal")
	assert.NoError(t, err)
	assert.True(t, twoStage)

	empty, err := confMap.FetchOptionValueStringSlice("Coherence", "Empty")
	assert.NoError(t, err)
	assert.Len(t, empty, 0)

	list, err := confMap.FetchOptionValueStringSlice("Coherence", "List")
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, list)

	_, err = confMap.FetchOptionValueString("Coherence", "List")
	assert.Error(t, err)
	_, err = confMap.FetchOptionValueString("Coherence", "Missing")
	assert.Error(t, err)
	_, err = confMap.FetchOptionValueString("Missing", "Protocol")
	assert.Error(t, err)
}

func TestUpdateFromFileMalformed(t *testing.T) {
	confFilePath := writeTempConfFile(t, "Partitions = 4\n")
	_, err := MakeConfMapFromFile(confFilePath)
	assert.Error(t, err, "option before any section must be rejected")

	confFilePath = writeTempConfFile(t, "[Cluster]\nthis is not an option\n")
	_, err = MakeConfMapFromFile(confFilePath)
	assert.Error(t, err)

	_, err = MakeConfMapFromFile(confFilePath + ".does-not-exist")
	assert.Error(t, err)
}

func TestUpdateFromStrings(t *testing.T) {
	confMap, err := MakeConfMapFromStrings([]string{
		"Cluster.Partitions=2",
		"Coherence.Protocol : wi",
		"Bench.Duration=1.5",
		"Bench.Timeout=250ms",
	})
	require.NoError(t, err)

	protocol, err := confMap.FetchOptionValueString("Coherence", "Protocol")
	assert.NoError(t, err)
	assert.Equal(t, "wi", protocol)

	err = confMap.UpdateFromString("Coherence.Protocol=vanilla")
	assert.NoError(t, err)
	protocol, _ = confMap.FetchOptionValueString("Coherence", "Protocol")
	assert.Equal(t, "vanilla", protocol)

	duration, err := confMap.FetchOptionValueDuration("Bench", "Duration")
	assert.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, duration)

	timeout, err := confMap.FetchOptionValueDuration("Bench", "Timeout")
	assert.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, timeout)

	assert.Error(t, confMap.UpdateFromString("   "))
	assert.Error(t, confMap.UpdateFromString("NoDotHere=1"))

	_, err = confMap.FetchOptionValueBool("Coherence", "Protocol")
	assert.Error(t, err)

	err = confMap.UpdateFromString("Cluster.Partitions=70000")
	assert.NoError(t, err)
	_, err = confMap.FetchOptionValueUint16("Cluster", "Partitions")
	assert.Error(t, err, "70000 overflows a uint16")

	assert.Equal(t, []string{
		"Bench.Duration=1.5",
		"Bench.Timeout=250ms",
		"Cluster.Partitions=70000",
		"Coherence.Protocol=vanilla",
	}, confMap.Dump())
}
