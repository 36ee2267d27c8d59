package tdms

import (
	"fmt"

	"github.com/samjwillis97/GoModal/pkg/channel"
	"github.com/samjwillis97/GoModal/pkg/failure"
	log "github.com/sirupsen/logrus"
)

// Dataset ids written by LoadGroup
const (
	DatasetData = "data"
	DatasetFRF  = "H"
	DatasetTime = "t"
	DatasetAxis = "w"
)

// LoadOptions configure LoadGroup.
type LoadOptions struct {
	// Axis names a channel of the group whose values become dataset w of
	// every other channel
	Axis string
}

// LoadGroup appends one channel per TDMS channel of group to set and returns
// their indices. Real values are stored as dataset data and complex values as
// dataset H.
func LoadGroup(set *channel.Set, f *File, group string, opts LoadOptions) ([]int, error) {
	const op = "tdms.LoadGroup"
	if !f.HasGroup(group) {
		return nil, failure.New(failure.UnknownKey, op, "no group %q", group)
	}

	var axis []float64
	if opts.Axis != "" {
		if !f.HasChannel(group, opts.Axis) {
			return nil, failure.New(failure.UnknownKey, op, "no axis channel %q in %q", opts.Axis, group)
		}
		data, err := f.ReadChannel(group, opts.Axis)
		if err != nil {
			return nil, err
		}
		var ok bool
		if axis, ok = data.([]float64); !ok {
			return nil, failure.New(failure.InputShape, op, "axis channel %q is not real", opts.Axis)
		}
	}

	var added []int
	for _, name := range f.Channels(group) {
		if name == opts.Axis {
			continue
		}
		data, err := f.ReadChannel(group, name)
		if err != nil {
			return added, fmt.Errorf("%s %q: %w", op, name, err)
		}
		props, err := f.Properties(group, name)
		if err != nil {
			return added, err
		}

		idx := set.AddChannel(set.Len())
		datasets := map[string]channel.Data{}
		switch v := data.(type) {
		case []complex128:
			datasets[DatasetFRF] = channel.Complex128s(v)
		case []float64:
			datasets[DatasetData] = channel.Float64s(v)
			if t, ok := timeAxis(props, len(v)); ok {
				datasets[DatasetTime] = channel.Float64s(t)
			}
		}
		if axis != nil {
			datasets[DatasetAxis] = channel.Float64s(axis)
		}
		for _, id := range []string{DatasetAxis, DatasetData, DatasetTime, DatasetFRF} {
			value, ok := datasets[id]
			if !ok {
				continue
			}
			if err := set.AddDataset([]string{id}, idx); err != nil {
				return added, err
			}
			if err := set.SetData(id, value, idx); err != nil {
				return added, err
			}
		}

		meta := map[string]interface{}{channel.KeyName: name}
		if p, ok := props.Get("NI_ChannelName"); ok {
			meta[channel.KeyName] = p.Value
		}
		if p, ok := props.Get("unit_string"); ok {
			meta[channel.KeyUnits] = p.Value
		}
		if p, ok := props.Get("description"); ok {
			meta[channel.KeyComments] = p.Value
		}
		if err := set.SetMetadata(meta, idx); err != nil {
			log.WithField("channel", name).Warnf("Channel metadata: %v", err)
		}
		added = append(added, idx)
		log.Debugf("Loaded %s/%s into channel %d", group, name, idx)
	}
	return added, nil
}

// timeAxis builds the sample times of a waveform channel from its
// wf_increment and wf_start_offset properties.
func timeAxis(props Properties, n int) ([]float64, bool) {
	p, ok := props.Get("wf_increment")
	if !ok {
		return nil, false
	}
	dt, err := p.Float64()
	if err != nil || dt <= 0 {
		return nil, false
	}
	var start float64
	if p, ok := props.Get("wf_start_offset"); ok {
		start, _ = p.Float64()
	}
	t := make([]float64, n)
	for i := range t {
		t[i] = start + float64(i)*dt
	}
	return t, true
}

// SampleRate returns 1/wf_increment of a channel.
func (f *File) SampleRate(group, name string) (float64, error) {
	props, err := f.Properties(group, name)
	if err != nil {
		return 0, err
	}
	p, ok := props.Get("wf_increment")
	if !ok {
		return 0, failure.New(failure.UnknownKey, "tdms.SampleRate", "%s has no wf_increment", ObjectPath(group, name))
	}
	dt, err := p.Float64()
	if err != nil {
		return 0, err
	}
	if dt <= 0 {
		return 0, failure.New(failure.InputShape, "tdms.SampleRate", "wf_increment %g", dt)
	}
	return 1 / dt, nil
}
