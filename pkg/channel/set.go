package channel

import (
	"errors"
	"sort"

	"github.com/samjwillis97/GoModal/pkg/failure"
	log "github.com/sirupsen/logrus"
)

// Set is an ordered sequence of Channels addressed by position.
//
// Methods taking targets act on every channel when none are given.
// Out of range targets are dropped.
type Set struct {
	channels []*Channel
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Len returns the number of channels.
func (s *Set) Len() int { return len(s.channels) }

// Channel returns the channel at index i.
func (s *Set) Channel(i int) (*Channel, bool) {
	if i < 0 || i >= len(s.channels) {
		return nil, false
	}
	return s.channels[i], true
}

// AddChannel appends a channel with id cid and returns its index.
func (s *Set) AddChannel(cid int) int {
	s.channels = append(s.channels, New(cid))
	log.Debugf("Added channel %d at index %d", cid, len(s.channels)-1)
	return len(s.channels) - 1
}

// Targets normalizes indices: ascending, unique, within range.
// No indices selects every channel.
func (s *Set) Targets(targets ...int) []int {
	if len(targets) == 0 {
		all := make([]int, len(s.channels))
		for i := range all {
			all[i] = i
		}
		return all
	}
	seen := make(map[int]bool, len(targets))
	out := make([]int, 0, len(targets))
	for _, t := range targets {
		if t < 0 || t >= len(s.channels) || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// AddDataset creates each id on each target. Collisions are skipped and
// reported in the returned error; the remaining ids are still added.
func (s *Set) AddDataset(ids []string, targets ...int) error {
	var errs []error
	for _, t := range s.Targets(targets...) {
		for _, id := range ids {
			if err := s.channels[t].AddDataset(id); err != nil {
				log.WithField("channel", t).Warn(err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RemoveDataset drops each id from each target.
func (s *Set) RemoveDataset(ids []string, targets ...int) {
	for _, t := range s.Targets(targets...) {
		for _, id := range ids {
			s.channels[t].RemoveDataset(id)
		}
	}
}

// SetData replaces the array of id on each target. Targets without the
// DataSet are skipped and reported.
func (s *Set) SetData(id string, value Data, targets ...int) error {
	var errs []error
	for _, t := range s.Targets(targets...) {
		if err := s.channels[t].SetData(id, value); err != nil {
			log.WithField("channel", t).Warn(err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetData returns channel index -> id -> array. Missing or empty pairs are omitted.
func (s *Set) GetData(ids []string, targets ...int) map[int]map[string]Data {
	out := make(map[int]map[string]Data)
	for _, t := range s.Targets(targets...) {
		for _, id := range ids {
			d, ok := s.channels[t].Data(id)
			if !ok {
				continue
			}
			if out[t] == nil {
				out[t] = make(map[string]Data)
			}
			out[t][id] = d
		}
	}
	return out
}

// SetMetadata writes recognized keys (case-insensitive) on each target.
// Unknown keys are rejected with an UnknownKey failure while the known keys
// of the same call are still applied. Spellings of one key that differ only
// in case are reported and the first in sorted order is kept.
func (s *Set) SetMetadata(meta map[string]interface{}, targets ...int) error {
	const op = "channel.SetMetadata"
	var errs []error
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	known := make(map[string]interface{}, len(meta))
	spelling := make(map[string]string, len(meta))
	for _, key := range keys {
		k, ok := normalizeKey(key)
		if !ok {
			errs = append(errs, failure.New(failure.UnknownKey, op, "%q", key))
			continue
		}
		if first, dup := spelling[k]; dup {
			errs = append(errs, failure.New(failure.InputShape, op, "%q and %q both set %s, keeping %q", first, key, k, first))
			continue
		}
		known[k], spelling[k] = meta[key], key
	}
	for _, t := range s.Targets(targets...) {
		for _, k := range MetadataKeys {
			value, present := known[k]
			if !present {
				continue
			}
			if err := s.channels[t].setMeta(k, value); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// GetMetadata reads keys from each target. No keys reads every recognized key.
func (s *Set) GetMetadata(keys []string, targets ...int) (map[int]map[string]interface{}, error) {
	const op = "channel.GetMetadata"
	if len(keys) == 0 {
		keys = MetadataKeys
	}
	var errs []error
	var wanted []string
	for _, key := range keys {
		k, ok := normalizeKey(key)
		if !ok {
			errs = append(errs, failure.New(failure.UnknownKey, op, "%q", key))
			continue
		}
		wanted = append(wanted, k)
	}
	out := make(map[int]map[string]interface{})
	for _, t := range s.Targets(targets...) {
		row := make(map[string]interface{}, len(wanted))
		for _, k := range wanted {
			row[k] = s.channels[t].getMeta(k)
		}
		out[t] = row
	}
	return out, errors.Join(errs...)
}
