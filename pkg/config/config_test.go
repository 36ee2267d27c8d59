package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/sonogram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, FormatTable, cfg.OutputFormat)
	assert.Equal(t, 1e6, cfg.TEMA.MaxTan)
	assert.Equal(t, 3, cfg.TEMA.EdgeMargin)
	assert.Equal(t, 200, cfg.RFP.MaxIter)
	assert.Equal(t, 1e-8, cfg.RFP.Tol)

	opts, err := cfg.SonogramOptions()
	require.NoError(t, err)
	assert.Equal(t, sonogram.Options{Width: 256, Hop: 32, Window: "hann", Plot: sonogram.Colourmap}, opts)
	assert.Equal(t, 1e6, cfg.TEMAOptions().MaxTan)
	assert.Equal(t, 200, cfg.RFPOptions().MaxIter)
}

func TestLoadFromYAML(t *testing.T) {
	v := New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
log_level: debug
tema:
  max_tan: 1000
sonogram:
  window: hamming
  width: 512
`)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1000.0, cfg.TEMA.MaxTan)
	assert.Equal(t, 3, cfg.TEMA.EdgeMargin)
	assert.Equal(t, "hamming", cfg.Sonogram.Window)
	assert.Equal(t, 512, cfg.Sonogram.Width)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	v := New()
	v.Set("tema.max_tann", 5)

	_, err := Load(v)

	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
	assert.Contains(t, err.Error(), "tema.max_tann")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
		kind error
	}{
		{"max tan", "tema.max_tan", 0, failure.ErrDomainReject},
		{"edge margin", "tema.edge_margin", 0, failure.ErrDomainReject},
		{"max iter", "rfp.max_iter", 0, failure.ErrDomainReject},
		{"tol", "rfp.tol", -1, failure.ErrDomainReject},
		{"window", "sonogram.window", "triangle-ish", failure.ErrUnknownKey},
		{"plot", "sonogram.plot", "pie", failure.ErrUnknownKey},
		{"width", "sonogram.width", 1, failure.ErrDomainReject},
		{"hop", "sonogram.hop", 512, failure.ErrDomainReject},
		{"output", "output_format", "csv", failure.ErrUnknownKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.val)

			_, err := Load(v)

			assert.True(t, errors.Is(err, tt.kind), "%v", err)
		})
	}
}

const sampleWorkspace = `# saved session
workpath='/data/rig 1'
default_group='FRF'
sonogram_window='blackman'
sonogram_width=1024
sonogram_hop=128
tema_max_tan=1000
rfp_max_iter=50
colour_scheme='dark'
`

func TestWorkspaceParseApply(t *testing.T) {
	ws, err := ParseWorkspace(strings.NewReader(sampleWorkspace))
	require.NoError(t, err)

	assert.Equal(t, "/data/rig 1", ws.String("workpath"))
	assert.Equal(t, "FRF", ws.String("default_group"))
	width, ok := ws.Get("sonogram_width")
	require.True(t, ok)
	assert.Equal(t, 1024, width)
	_, ok = ws.Get("colour_scheme")
	assert.False(t, ok)

	v := New()
	ws.Apply(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "blackman", cfg.Sonogram.Window)
	assert.Equal(t, 1024, cfg.Sonogram.Width)
	assert.Equal(t, 128, cfg.Sonogram.Hop)
	assert.Equal(t, 1000.0, cfg.TEMA.MaxTan)
	assert.Equal(t, 50, cfg.RFP.MaxIter)
}

func TestWorkspaceEncode(t *testing.T) {
	ws := NewWorkspace()
	require.NoError(t, ws.Set("workpath", "it's here"))
	require.NoError(t, ws.Set("sonogram_hop", "64"))
	require.NoError(t, ws.Set("tema_max_tan", 1e6))

	var buf bytes.Buffer
	require.NoError(t, ws.Encode(&buf))

	assert.Equal(t, "sonogram_hop=64\ntema_max_tan=1000000\nworkpath='it''s here'\n", buf.String())

	again, err := ParseWorkspace(&buf)
	require.NoError(t, err)
	assert.Equal(t, "it's here", again.String("workpath"))
	hop, _ := again.Get("sonogram_hop")
	assert.Equal(t, 64, hop)
}

func TestWorkspaceCapture(t *testing.T) {
	v := New()
	v.Set("sonogram.width", 2048)

	ws := NewWorkspace()
	require.NoError(t, ws.Capture(v))

	width, _ := ws.Get("sonogram_width")
	assert.Equal(t, 2048, width)
	window, _ := ws.Get("sonogram_window")
	assert.Equal(t, "hann", window)
}

func TestWorkspaceEnvSyntax(t *testing.T) {
	ws, err := ParseWorkspace(strings.NewReader("# header\nSONOGRAM_HOP=64 # per frame\n\nexport default_group='Run 2'\n"))
	require.NoError(t, err)

	hop, ok := ws.Get("sonogram_hop")
	require.True(t, ok)
	assert.Equal(t, 64, hop)
	assert.Equal(t, "Run 2", ws.String("default_group"))
}

func TestWorkspaceErrors(t *testing.T) {
	_, err := ParseWorkspace(strings.NewReader("workpath\n"))
	assert.True(t, errors.Is(err, failure.ErrInputShape))

	_, err = ParseWorkspace(strings.NewReader("workpath='open\n"))
	assert.True(t, errors.Is(err, failure.ErrInputShape))

	_, err = ParseWorkspace(strings.NewReader("sonogram_width=wide\n"))
	assert.True(t, errors.Is(err, failure.ErrWrongType))

	assert.True(t, errors.Is(NewWorkspace().Set("nope", 1), failure.ErrUnknownKey))
}
