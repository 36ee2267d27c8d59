package channel

import (
	"errors"
	"testing"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet(n int) *Set {
	s := NewSet()
	for i := 0; i < n; i++ {
		s.AddChannel(i)
	}
	return s
}

func TestChannelCRUD(t *testing.T) {
	s := newSet(3)

	require.NoError(t, s.AddDataset([]string{"x", "y"}))
	require.NoError(t, s.SetData("y", Float64s{1, 2, 3}, 1))

	got := s.GetData([]string{"y"}, 1)
	require.Contains(t, got, 1)
	assert.Equal(t, Float64s{1, 2, 3}, got[1]["y"])

	require.NoError(t, s.SetMetadata(map[string]interface{}{"name": "A", "tags": "left rear"}, 0))
	meta, err := s.GetMetadata([]string{"tags", "name"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "rear"}, meta[0]["tags"])
	assert.Equal(t, "A", meta[0]["name"])
}

func TestDefaults(t *testing.T) {
	c := New(7)

	assert.Equal(t, "Channel 7", c.Name)
	assert.Equal(t, 1.0, c.CalFactor)
	assert.Empty(t, c.Tags)
}

func TestTargetsNormalization(t *testing.T) {
	s := newSet(4)

	assert.Equal(t, []int{0, 1, 2, 3}, s.Targets())
	assert.Equal(t, []int{1, 3}, s.Targets(3, 1, 3, 9, -1))
	assert.Empty(t, s.Targets(10))
}

func TestDuplicateDatasetIsReportedAndIgnored(t *testing.T) {
	s := newSet(2)
	require.NoError(t, s.AddDataset([]string{"x"}, 0))
	require.NoError(t, s.SetData("x", Float64s{4, 5}, 0))

	err := s.AddDataset([]string{"x", "z"})
	require.Error(t, err)

	// channel 0 keeps its data, channel 1 gets both ids
	x, ok := s.channels[0].Float64s("x")
	require.True(t, ok)
	assert.Equal(t, Float64s{4, 5}, x)
	assert.Equal(t, []string{"x", "z"}, s.channels[0].DatasetIDs())
	assert.Equal(t, []string{"x", "z"}, s.channels[1].DatasetIDs())
}

func TestSetDataUnknownID(t *testing.T) {
	s := newSet(2)
	require.NoError(t, s.AddDataset([]string{"x"}, 1))

	err := s.SetData("x", Float64s{1}, 0, 1)
	require.Error(t, err)

	got := s.GetData([]string{"x"})
	assert.NotContains(t, got, 0)
	assert.Equal(t, Float64s{1}, got[1]["x"])
}

func TestGetDataOmitsEmptyAndMissing(t *testing.T) {
	s := newSet(2)
	require.NoError(t, s.AddDataset([]string{"x", "y"}))
	require.NoError(t, s.SetData("x", Complex128s{1 + 2i}, 0))

	got := s.GetData([]string{"x", "y", "nope"})
	assert.Len(t, got, 1)
	assert.Len(t, got[0], 1)
	assert.Equal(t, Complex128s{1 + 2i}, got[0]["x"])
}

func TestMetadataKeysAreCaseInsensitive(t *testing.T) {
	s := newSet(2)

	err := s.SetMetadata(map[string]interface{}{"Cal_Factor": "2.5", "UNITS": "m/s", "Comments": "bolted"})
	require.NoError(t, err)

	meta, err := s.GetMetadata([]string{"CAL_FACTOR", "units", "comments"})
	require.NoError(t, err)
	for _, i := range []int{0, 1} {
		assert.Equal(t, 2.5, meta[i]["cal_factor"])
		assert.Equal(t, "m/s", meta[i]["units"])
		assert.Equal(t, "bolted", meta[i]["comments"])
	}
}

func TestMetadataKeyCollision(t *testing.T) {
	for i := 0; i < 20; i++ {
		s := newSet(1)
		err := s.SetMetadata(map[string]interface{}{"Name": "a", "NAME": "b", "name": "c"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, failure.ErrInputShape))
		assert.Equal(t, "b", s.channels[0].Name, "the first spelling in sorted order wins")
	}
}

func TestUnknownMetadataKeyRejected(t *testing.T) {
	s := newSet(1)

	err := s.SetMetadata(map[string]interface{}{"colour": "red", "name": "kept"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
	assert.Equal(t, "kept", s.channels[0].Name)

	_, err = s.GetMetadata([]string{"colour"})
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
}

func TestMetadataWrongType(t *testing.T) {
	s := newSet(1)

	err := s.SetMetadata(map[string]interface{}{"cal_factor": "heavy"})
	require.Error(t, err)
	assert.Equal(t, failure.WrongType, failure.KindOf(err))
	assert.Equal(t, 1.0, s.channels[0].CalFactor)
}

func TestTagsCollapseDuplicates(t *testing.T) {
	s := newSet(1)

	require.NoError(t, s.SetMetadata(map[string]interface{}{"tags": []string{"rear", "left", "rear"}}))
	assert.Equal(t, []string{"rear", "left"}, s.channels[0].Tags)

	require.NoError(t, s.SetMetadata(map[string]interface{}{"tags": "  a  b a "}))
	assert.Equal(t, []string{"a", "b"}, s.channels[0].Tags)
}

func TestRemoveDataset(t *testing.T) {
	s := newSet(1)
	require.NoError(t, s.AddDataset([]string{"a", "b", "c"}))

	s.RemoveDataset([]string{"b"})

	assert.Equal(t, []string{"a", "c"}, s.channels[0].DatasetIDs())
	assert.False(t, s.channels[0].HasDataset("b"))
}
