// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFragmentTaskMessageRoundTrip(t *testing.T) {
	m := &FragmentTaskMessage{
		TargetPartition: 2,
		InitiatorID:     7,
		TxnID:           123456789,
		ClientHandle:    42,
		FragmentIDs:     []int64{10, 11},
		InputDepIDs:     []int32{NullDependencyID, 1005},
		OutputDepIDs:    []int32{1005, 1006},
		StmtIndexes:     []int32{0, 0},
		ParamPayloads:   [][]byte{{0x01, 0x02}, {}},
		TaskType:        UserProc,
		FinalTask:       true,
	}

	buf, err := m.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestFragmentTaskMessageEmpty(t *testing.T) {
	m := &FragmentTaskMessage{
		TaskType:      SysProcPerPartition,
		FragmentIDs:   []int64{},
		InputDepIDs:   []int32{},
		OutputDepIDs:  []int32{},
		StmtIndexes:   []int32{},
		ParamPayloads: [][]byte{},
	}
	buf, err := m.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestFragmentTaskMessageMismatchedArrays(t *testing.T) {
	m := &FragmentTaskMessage{
		FragmentIDs: []int64{1, 2},
		InputDepIDs: []int32{NullDependencyID},
	}
	_, err := m.Marshal()
	require.Error(t, err)
}

func TestUnmarshalTruncated(t *testing.T) {
	_, err := Unmarshal([]byte{0x00, 0x01})
	require.Error(t, err)
}
