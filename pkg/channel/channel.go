// Package channel stores named groups of labelled numeric series.
//
// A Set is an ordered list of Channels. Each Channel carries its metadata
// (name, calibration factor, units, tags, comments) and an insertion ordered
// mapping from DataSet id to an array.
package channel

import (
	"fmt"
)

// Data is an array held by a DataSet.
type Data interface {
	Len() int
}

// Float64s is a real valued series.
type Float64s []float64

func (f Float64s) Len() int { return len(f) }

// Complex128s is a complex valued series, e.g. an FRF.
type Complex128s []complex128

func (c Complex128s) Len() int { return len(c) }

// Channel is one measurement channel.
type Channel struct {
	ID        int
	Name      string
	CalFactor float64
	Units     string
	Tags      []string
	Comments  string

	order []string
	data  map[string]Data
}

// New returns a Channel with the default name and a unit calibration factor.
func New(cid int) *Channel {
	return &Channel{
		ID:        cid,
		Name:      fmt.Sprintf("Channel %d", cid),
		CalFactor: 1.0,
		data:      make(map[string]Data),
	}
}

// AddDataset creates an empty DataSet. Duplicate ids are left untouched.
func (c *Channel) AddDataset(id string) error {
	if _, present := c.data[id]; present {
		return fmt.Errorf("channel %d: dataset %q already exists", c.ID, id)
	}
	c.data[id] = nil
	c.order = append(c.order, id)
	return nil
}

// HasDataset reports whether id exists.
func (c *Channel) HasDataset(id string) bool {
	_, present := c.data[id]
	return present
}

// SetData replaces the array of an existing DataSet.
// The array is stored by reference.
func (c *Channel) SetData(id string, value Data) error {
	if _, present := c.data[id]; !present {
		return fmt.Errorf("channel %d: no dataset %q", c.ID, id)
	}
	c.data[id] = value
	return nil
}

// Data returns the array of id. Empty DataSets return false.
func (c *Channel) Data(id string) (Data, bool) {
	d, present := c.data[id]
	if !present || d == nil {
		return nil, false
	}
	return d, true
}

// Float64s returns a real DataSet.
func (c *Channel) Float64s(id string) (Float64s, bool) {
	d, ok := c.Data(id)
	if !ok {
		return nil, false
	}
	f, ok := d.(Float64s)
	return f, ok
}

// Complex128s returns a complex DataSet.
func (c *Channel) Complex128s(id string) (Complex128s, bool) {
	d, ok := c.Data(id)
	if !ok {
		return nil, false
	}
	z, ok := d.(Complex128s)
	return z, ok
}

// RemoveDataset drops id. It reports whether id existed.
func (c *Channel) RemoveDataset(id string) bool {
	if _, present := c.data[id]; !present {
		return false
	}
	delete(c.data, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// DatasetIDs returns the DataSet ids in insertion order.
func (c *Channel) DatasetIDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}
