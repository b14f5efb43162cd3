package scanning

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netinventory/internal/discovery"
	inverrors "github.com/anstrom/netinventory/internal/errors"
)

func TestParseIntensity(t *testing.T) {
	tests := []struct {
		in      string
		want    Intensity
		wantErr bool
	}{
		{"basic", IntensityBasic, false},
		{"Intense", IntensityIntense, false},
		{" FULL ", IntensityFull, false},
		{"stealth", IntensityBasic, true},
		{"", IntensityBasic, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIntensity(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, inverrors.IsCode(err, inverrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanOptions_Profile(t *testing.T) {
	tests := []struct {
		name string
		opts ScanOptions
		want discovery.Profile
	}{
		{
			name: "basic",
			opts: ScanOptions{Intensity: IntensityBasic},
			want: discovery.Profile{TopPorts: 20},
		},
		{
			name: "intense",
			opts: ScanOptions{Intensity: IntensityIntense},
			want: discovery.Profile{TopPorts: 100, OSDetection: true, ServiceDetection: true},
		},
		{
			name: "full",
			opts: ScanOptions{Intensity: IntensityFull},
			want: discovery.Profile{AllPorts: true, OSDetection: true, ServiceDetection: true, Aggressive: true},
		},
		{
			name: "basic with forced OS detection",
			opts: ScanOptions{Intensity: IntensityBasic, IncludeOSDetection: true},
			want: discovery.Profile{TopPorts: 20, OSDetection: true},
		},
		{
			name: "basic with forced service detection",
			opts: ScanOptions{Intensity: IntensityBasic, IncludeServiceDetection: true},
			want: discovery.Profile{TopPorts: 20, ServiceDetection: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Profile())
		})
	}
}

func TestScanOptions_TargetMode(t *testing.T) {
	assert.Equal(t, "range", ScanOptions{IPRange: "10.0.0.1-20", Subnet: "10.0.0.0/24"}.TargetMode())
	assert.Equal(t, "subnet", ScanOptions{Subnet: "10.0.0.0/24"}.TargetMode())
	assert.Equal(t, "auto", ScanOptions{}.TargetMode())
}

func TestScanOptions_Validate(t *testing.T) {
	valid := DefaultScanOptions()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ScanOptions)
	}{
		{"bad subnet", func(o *ScanOptions) { o.Subnet = "not-a-network" }},
		{"bad range", func(o *ScanOptions) { o.IPRange = "10.0.0.300-301" }},
		{"zero max devices", func(o *ScanOptions) { o.MaxDevices = 0 }},
		{"timeout too short", func(o *ScanOptions) { o.Timeout = 100 * time.Millisecond }},
		{"timeout too long", func(o *ScanOptions) { o.Timeout = 48 * time.Hour }},
		{"unknown intensity", func(o *ScanOptions) { o.Intensity = Intensity(7) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultScanOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.True(t, inverrors.IsCode(err, inverrors.CodeValidation))
		})
	}

	withTargets := DefaultScanOptions()
	withTargets.Subnet = "192.168.50.0/30"
	withTargets.IPRange = "192.168.50.1-3"
	assert.NoError(t, withTargets.Validate())
}

func TestScanOptions_ValidateRequest(t *testing.T) {
	unset := ScanOptions{Intensity: IntensityBasic, IncludePorts: true}
	assert.Error(t, unset.Validate())
	assert.NoError(t, unset.ValidateRequest())
	assert.Zero(t, unset.MaxDevices)
	assert.Zero(t, unset.Timeout)

	badTarget := unset
	badTarget.Subnet = "not-a-network"
	assert.True(t, inverrors.IsCode(badTarget.ValidateRequest(), inverrors.CodeValidation))

	tooLong := unset
	tooLong.Timeout = 48 * time.Hour
	assert.Error(t, tooLong.ValidateRequest())
}

func TestScanOptions_JSON(t *testing.T) {
	opts := ScanOptions{
		Intensity:          IntensityIntense,
		Subnet:             "10.1.0.0/24",
		IncludePorts:       true,
		IncludeOSDetection: true,
		MaxDevices:         50,
		Timeout:            90 * time.Second,
	}

	data, err := json.Marshal(opts)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"intensity":"intense"`)
	assert.Contains(t, string(data), `"timeout_seconds":90`)

	var decoded ScanOptions
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, opts, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"intensity":"ludicrous"}`), &decoded))
}
