package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samjwillis97/GoModal/pkg/failure"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
)

type workspaceKey struct {
	kind valueKind
	// viper key overridden by Apply, empty when the value is only carried
	target string
}

var workspaceKeys = map[string]workspaceKey{
	"workpath":         {kindString, ""},
	"default_group":    {kindString, ""},
	"sonogram_window":  {kindString, "sonogram.window"},
	"sonogram_width":   {kindInt, "sonogram.width"},
	"sonogram_hop":     {kindInt, "sonogram.hop"},
	"sonogram_plot":    {kindString, "sonogram.plot"},
	"tema_max_tan":     {kindFloat, "tema.max_tan"},
	"tema_edge_margin": {kindInt, "tema.edge_margin"},
	"rfp_max_iter":     {kindInt, "rfp.max_iter"},
}

// Workspace holds the values of a line oriented key=value workspace file.
// Strings are single quoted and numbers are bare.
type Workspace struct {
	values map[string]interface{}
}

// NewWorkspace returns an empty Workspace.
func NewWorkspace() *Workspace {
	return &Workspace{values: make(map[string]interface{})}
}

// ParseWorkspace reads a workspace file through viper's env codec. Blank
// lines and lines starting with # are skipped; unknown keys are logged and
// ignored.
func ParseWorkspace(r io.Reader) (*Workspace, error) {
	const op = "config.ParseWorkspace"
	raw := viper.New()
	raw.SetConfigType("env")
	if err := raw.ReadConfig(r); err != nil {
		return nil, failure.Wrap(failure.InputShape, op, err)
	}

	ws := NewWorkspace()
	keys := raw.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		entry, ok := workspaceKeys[key]
		if !ok {
			log.WithField("key", key).Warn("Ignoring unknown workspace key")
			continue
		}
		value := raw.Get(key)
		if entry.kind == kindString {
			value = strings.ReplaceAll(cast.ToString(value), "''", "'")
		}
		if err := ws.Set(key, value); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

// Set stores value under a recognized key, coercing it to the key's type.
func (w *Workspace) Set(key string, value interface{}) error {
	const op = "config.Workspace"
	entry, ok := workspaceKeys[key]
	if !ok {
		return failure.New(failure.UnknownKey, op, "%q", key)
	}
	var err error
	switch entry.kind {
	case kindString:
		value, err = cast.ToStringE(value)
	case kindInt:
		value, err = cast.ToIntE(value)
	case kindFloat:
		value, err = cast.ToFloat64E(value)
	}
	if err != nil {
		return failure.Wrap(failure.WrongType, op, fmt.Errorf("%s: %w", key, err))
	}
	w.values[key] = value
	return nil
}

// Get returns the value of key.
func (w *Workspace) Get(key string) (interface{}, bool) {
	v, ok := w.values[key]
	return v, ok
}

// String returns the value of key as a string, empty when unset.
func (w *Workspace) String(key string) string {
	return cast.ToString(w.values[key])
}

// Apply overrides the matching configuration keys of v.
func (w *Workspace) Apply(v *viper.Viper) {
	for key, value := range w.values {
		if target := workspaceKeys[key].target; target != "" {
			v.Set(target, value)
		}
	}
}

// Capture copies the matching configuration keys of v into the workspace.
func (w *Workspace) Capture(v *viper.Viper) error {
	for key, entry := range workspaceKeys {
		if entry.target == "" || !v.IsSet(entry.target) {
			continue
		}
		if err := w.Set(key, v.Get(entry.target)); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes the workspace in key order.
func (w *Workspace) Encode(out io.Writer) error {
	keys := make([]string, 0, len(w.values))
	for k := range w.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var text string
		switch v := w.values[k].(type) {
		case string:
			text = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		case float64:
			text = cast.ToString(v)
		default:
			text = fmt.Sprint(v)
		}
		if _, err := fmt.Fprintf(out, "%s=%s\n", k, text); err != nil {
			return failure.Wrap(failure.IO, "config.Workspace", err)
		}
	}
	return nil
}
