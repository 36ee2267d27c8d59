package channel

import (
	"strings"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/spf13/cast"
)

// Recognized metadata keys
const (
	KeyName      = "name"
	KeyCalFactor = "cal_factor"
	KeyUnits     = "units"
	KeyTags      = "tags"
	KeyComments  = "comments"
)

// MetadataKeys lists the recognized keys in display order.
var MetadataKeys = []string{KeyName, KeyCalFactor, KeyUnits, KeyTags, KeyComments}

func normalizeKey(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, known := range MetadataKeys {
		if k == known {
			return k, true
		}
	}
	return k, false
}

// setMeta writes a single recognized key.
func (c *Channel) setMeta(key string, value interface{}) error {
	const op = "channel.SetMetadata"
	switch key {
	case KeyName:
		s, err := cast.ToStringE(value)
		if err != nil {
			return &failure.Error{Kind: failure.WrongType, Op: op, Detail: key, Err: err}
		}
		c.Name = s
	case KeyCalFactor:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return &failure.Error{Kind: failure.WrongType, Op: op, Detail: key, Err: err}
		}
		c.CalFactor = f
	case KeyUnits:
		s, err := cast.ToStringE(value)
		if err != nil {
			return &failure.Error{Kind: failure.WrongType, Op: op, Detail: key, Err: err}
		}
		c.Units = s
	case KeyTags:
		tags, err := cast.ToStringSliceE(value)
		if err != nil {
			return &failure.Error{Kind: failure.WrongType, Op: op, Detail: key, Err: err}
		}
		c.Tags = uniqueTags(tags)
	case KeyComments:
		s, err := cast.ToStringE(value)
		if err != nil {
			return &failure.Error{Kind: failure.WrongType, Op: op, Detail: key, Err: err}
		}
		c.Comments = s
	}
	return nil
}

func (c *Channel) getMeta(key string) interface{} {
	switch key {
	case KeyName:
		return c.Name
	case KeyCalFactor:
		return c.CalFactor
	case KeyUnits:
		return c.Units
	case KeyTags:
		tags := make([]string, len(c.Tags))
		copy(tags, c.Tags)
		return tags
	case KeyComments:
		return c.Comments
	}
	return nil
}

// uniqueTags splits any whitespace inside entries and drops repeats,
// keeping the first occurrence.
func uniqueTags(in []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, tag := range strings.Fields(entry) {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out
}
