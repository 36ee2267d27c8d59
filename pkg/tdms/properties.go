package tdms

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/spf13/cast"
)

// Property is one named value attached to a TDMS object.
type Property struct {
	Name  string
	Type  DataType
	Value interface{}
}

// String formats the value for display.
func (p Property) String() string {
	switch v := p.Value.(type) {
	case float64:
		return fmt.Sprintf("%e", v)
	case time.Time:
		return v.String()
	case complex128:
		return fmt.Sprintf("%e", v)
	}
	return cast.ToString(p.Value)
}

// Float64 coerces the value to float64.
func (p Property) Float64() (float64, error) {
	v, err := cast.ToFloat64E(p.Value)
	if err != nil {
		return 0, failure.Wrap(failure.WrongType, "tdms.Property", fmt.Errorf("%s: %w", p.Name, err))
	}
	return v, nil
}

type Properties []Property

// Sorting for Properties, case insensitive by name
func (p Properties) Len() int { return len(p) }

func (p Properties) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p Properties) Less(i, j int) bool {
	si, sj := p[i].Name, p[j].Name
	siLow, sjLow := strings.ToLower(si), strings.ToLower(sj)
	if siLow == sjLow {
		return si < sj
	}
	return siLow < sjLow
}

// Get returns the property called name.
func (p Properties) Get(name string) (Property, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop, true
		}
	}
	return Property{}, false
}

// propertySet keeps the latest value of each property.
type propertySet struct {
	byName map[string]int
	list   Properties
}

func newPropertySet() *propertySet {
	return &propertySet{byName: make(map[string]int)}
}

func (f *File) setProperty(path string, prop Property) {
	f.addPath(path)
	set := f.props[path]
	if i, ok := set.byName[prop.Name]; ok {
		set.list[i] = prop
		return
	}
	set.byName[prop.Name] = len(set.list)
	set.list = append(set.list, prop)
}

// Properties returns the properties of the root, a group or a channel,
// sorted by name.
func (f *File) Properties(names ...string) (Properties, error) {
	path := ObjectPath(names...)
	set, ok := f.props[path]
	if !ok {
		return nil, failure.New(failure.UnknownKey, "tdms.Properties", "no object %s", path)
	}
	out := append(Properties(nil), set.list...)
	sort.Sort(out)
	return out, nil
}
