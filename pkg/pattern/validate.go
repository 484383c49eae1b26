package pattern

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig matches every *ValidationError via errors.Is.
var ErrInvalidConfig = errors.New("invalid metronome configuration")

// ErrorCode classifies a validation failure.
type ErrorCode string

const (
	CodeTempoOutOfRange    ErrorCode = "TEMPO_OUT_OF_RANGE"
	CodeVolumeOutOfRange   ErrorCode = "VOLUME_OUT_OF_RANGE"
	CodeInvalidBeatUnit    ErrorCode = "INVALID_BEAT_UNIT"
	CodeNoLayers           ErrorCode = "NO_LAYERS"
	CodeUnknownLayer       ErrorCode = "UNKNOWN_LAYER"
	CodeEmptyMask          ErrorCode = "EMPTY_MASK"
	CodeMaskLengthMismatch ErrorCode = "MASK_LENGTH_MISMATCH"
)

// ValidationError describes why a configuration was rejected.
type ValidationError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Is reports true for ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func invalid(code ErrorCode, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidBeatUnits are the accepted time-signature denominators.
var ValidBeatUnits = []int{2, 4, 8, 16}

// Validate checks every field of cfg and returns the first problem found.
func Validate(cfg Config) error {
	if err := ValidateTempo(cfg.Tempo); err != nil {
		return err
	}
	if err := ValidateVolume(cfg.Volume); err != nil {
		return err
	}
	if err := ValidateBeatUnit(cfg.BeatUnit); err != nil {
		return err
	}
	return ValidateLayers(cfg.Layers)
}

// ValidateTempo checks that bpm lies in [MinTempo, MaxTempo].
func ValidateTempo(bpm int) error {
	if bpm < MinTempo || bpm > MaxTempo {
		return invalid(CodeTempoOutOfRange, "tempo", "%d bpm is outside %d-%d", bpm, MinTempo, MaxTempo)
	}
	return nil
}

// ValidateVolume checks that v lies in [0, 1].
func ValidateVolume(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return invalid(CodeVolumeOutOfRange, "volume", "%v is outside 0-1", v)
	}
	return nil
}

// ValidateBeatUnit accepts 0 (meaning DefaultBeatUnit) or one of ValidBeatUnits.
func ValidateBeatUnit(unit int) error {
	if unit == 0 {
		return nil
	}
	for _, u := range ValidBeatUnits {
		if unit == u {
			return nil
		}
	}
	return invalid(CodeInvalidBeatUnit, "beatUnit", "%d is not one of %v", unit, ValidBeatUnits)
}

// ValidateLayers requires at least one known layer and equal, non-empty masks.
func ValidateLayers(layers Layers) error {
	if len(layers) == 0 {
		return invalid(CodeNoLayers, "layers", "at least one layer is required")
	}

	length := -1
	var first Layer
	for _, name := range layers.Names() {
		if !name.Valid() {
			return invalid(CodeUnknownLayer, "layers."+string(name), "unknown layer; expected one of %v", AllLayers)
		}
		mask := layers[name]
		if len(mask) == 0 {
			return invalid(CodeEmptyMask, "layers."+string(name), "beat mask is empty")
		}
		if length < 0 {
			length, first = len(mask), name
			continue
		}
		if len(mask) != length {
			return invalid(CodeMaskLengthMismatch, "layers."+string(name),
				"has %d beats but %s has %d", len(mask), first, length)
		}
	}
	return nil
}
