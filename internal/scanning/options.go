package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/netinventory/internal/discovery"
	inverrors "github.com/anstrom/netinventory/internal/errors"
)

// Intensity selects how deep the port/OS scan goes.
type Intensity int

const (
	IntensityBasic Intensity = iota
	IntensityIntense
	IntensityFull
)

const (
	defaultMaxDevices = 100
	defaultJobTimeout = 300 * time.Second
)

var intensityNames = map[Intensity]string{
	IntensityBasic:   "basic",
	IntensityIntense: "intense",
	IntensityFull:    "full",
}

// intensityProfiles is the tier table; explicit option flags are applied on top.
var intensityProfiles = map[Intensity]discovery.Profile{
	IntensityBasic: {
		TopPorts: 20,
	},
	IntensityIntense: {
		TopPorts:         100,
		OSDetection:      true,
		ServiceDetection: true,
	},
	IntensityFull: {
		AllPorts:         true,
		OSDetection:      true,
		ServiceDetection: true,
		Aggressive:       true,
	},
}

// ParseIntensity accepts basic, intense or full in any case.
func ParseIntensity(s string) (Intensity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range intensityNames {
		if n == name {
			return i, nil
		}
	}
	return IntensityBasic, inverrors.NewScanError(inverrors.CodeValidation,
		fmt.Sprintf("unknown scan intensity %q", s))
}

func (i Intensity) String() string {
	if name, ok := intensityNames[i]; ok {
		return name
	}
	return fmt.Sprintf("intensity(%d)", int(i))
}

// MarshalText implements encoding.TextMarshaler.
func (i Intensity) MarshalText() ([]byte, error) {
	if _, ok := intensityNames[i]; !ok {
		return nil, fmt.Errorf("invalid intensity %d", int(i))
	}
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Intensity) UnmarshalText(text []byte) error {
	parsed, err := ParseIntensity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// ScanOptions configures one job. It is copied into the job and never changed afterwards.
type ScanOptions struct {
	Intensity               Intensity     `json:"intensity" validate:"min=0,max=2"`
	IPRange                 string        `json:"ip_range,omitempty" validate:"omitempty,scantarget"`
	Subnet                  string        `json:"subnet,omitempty" validate:"omitempty,scantarget"`
	IncludePorts            bool          `json:"include_ports"`
	IncludeOSDetection      bool          `json:"include_os_detection"`
	IncludeServiceDetection bool          `json:"include_service_detection"`
	MaxDevices              int           `json:"max_devices" validate:"min=1,max=65536"`
	Timeout                 time.Duration `json:"-" validate:"min=1s,max=24h"`
}

// DefaultScanOptions returns basic-intensity options with port scanning enabled.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Intensity:    IntensityBasic,
		IncludePorts: true,
		MaxDevices:   defaultMaxDevices,
		Timeout:      defaultJobTimeout,
	}
}

type scanOptionsJSON struct {
	scanOptionsAlias
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

type scanOptionsAlias ScanOptions

// MarshalJSON writes the timeout as seconds.
func (o ScanOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(scanOptionsJSON{
		scanOptionsAlias: scanOptionsAlias(o),
		TimeoutSeconds:   o.Timeout.Seconds(),
	})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (o *ScanOptions) UnmarshalJSON(data []byte) error {
	var v scanOptionsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = ScanOptions(v.scanOptionsAlias)
	o.Timeout = time.Duration(v.TimeoutSeconds * float64(time.Second))
	return nil
}

// TargetMode names the rule that picks targets: range, subnet or auto.
func (o ScanOptions) TargetMode() string {
	switch {
	case o.IPRange != "":
		return "range"
	case o.Subnet != "":
		return "subnet"
	default:
		return "auto"
	}
}

// Profile returns the deep-scan profile for the tier, with forced detection flags applied.
func (o ScanOptions) Profile() discovery.Profile {
	p := intensityProfiles[o.Intensity]
	if o.IncludeOSDetection {
		p.OSDetection = true
	}
	if o.IncludeServiceDetection {
		p.ServiceDetection = true
	}
	return p
}

var optionsValidator = newOptionsValidator()

func newOptionsValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("scantarget", func(fl validator.FieldLevel) bool {
		return discovery.ValidateTarget(fl.Field().String()) == nil
	})
	return v
}

// Validate checks the options, returning a CodeValidation error naming the first bad field.
func (o ScanOptions) Validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return inverrors.WrapScanError(inverrors.CodeValidation,
				fmt.Sprintf("invalid scan option %s (%s)", fe.Field(), fe.Tag()), err).
				WithContext("value", fe.Value())
		}
		return inverrors.WrapScanError(inverrors.CodeValidation, "invalid scan options", err)
	}
	return nil
}

// ValidateRequest checks options that may leave Timeout and MaxDevices at zero
// for Engine.Start to fill from its configuration.
func (o ScanOptions) ValidateRequest() error {
	if o.Timeout == 0 {
		o.Timeout = defaultJobTimeout
	}
	if o.MaxDevices == 0 {
		o.MaxDevices = defaultMaxDevices
	}
	return o.Validate()
}
