package sss

import (
	"fmt"
	"math"
	"time"
)

// Nominal measurement units, inferred from a very small sample of captures.
const (
	// NominalResistanceUnit is the rescaled resistance unit in megaohms.
	NominalResistanceUnit = 0.01
	// NominalCurrentScale is the suspected amps-per-unit factor for current
	// and leakage measurements. Obtained from two samples that happened to
	// be identical; treat with caution.
	NominalCurrentScale = 0.1 / 16
)

// DecodeOptions carries the low-confidence measurement tunables. The zero
// value leaves measurements in raw rescaled units with no display cap.
type DecodeOptions struct {
	// CurrentScale multiplies rescaled current and leakage magnitudes.
	// Zero or one leaves them untouched.
	CurrentScale float64
	// InsulationCapMohm caps reported earth-insulation resistance the way
	// the meter display does (19.99 or 99.99 MOhm depending on model).
	// Zero disables the cap.
	InsulationCapMohm float64
}

// Rescale decodes a packed measurement magnitude: the top two bits select a
// power-of-ten divisor (0-3) and the low 14 bits are the mantissa.
func Rescale(v uint16) float64 {
	return float64(v&0x3fff) / math.Pow10(int(v>>14))
}

// fixup is a post-decode transform applied to one sub-record's fields.
type fixup func(f *Fields, opts DecodeOptions) error

// chain applies fixups in order, stopping at the first error.
func chain(fns ...fixup) fixup {
	return func(f *Fields, opts DecodeOptions) error {
		for _, fn := range fns {
			if err := fn(f, opts); err != nil {
				return err
			}
		}
		return nil
	}
}

// splitPassMagnitude splits a version-1 packed result field: bit 15 is the
// pass flag, the low 15 bits are the magnitude, which stays under the
// original name. Version-2 layouts carry the flag as its own byte instead,
// so both versions end up with the same pass + magnitude pair.
func splitPassMagnitude(name string) fixup {
	return func(f *Fields, _ DecodeOptions) error {
		v, _ := f.Get(name)
		raw := uint16(v.Uint)
		f.Set(name, UintValue(uint32(raw&0x7fff)))
		f.Set("pass", BoolValue(raw&0x8000 != 0))
		return nil
	}
}

// passBool normalizes a literal pass byte (1 = pass, 0 = fail) into a
// boolean.
func passBool(name string) fixup {
	return func(f *Fields, _ DecodeOptions) error {
		v, _ := f.Get(name)
		f.Set(name, BoolValue(v.Uint != 0))
		return nil
	}
}

// rescaleFields replaces raw magnitudes with their rescaled decimal values.
func rescaleFields(names ...string) fixup {
	return func(f *Fields, _ DecodeOptions) error {
		for _, name := range names {
			v, _ := f.Get(name)
			f.Set(name, DecimalValue(Rescale(uint16(v.Uint))))
		}
		return nil
	}
}

// scaleCurrent applies the configured amps conversion to rescaled current
// and leakage fields.
func scaleCurrent(names ...string) fixup {
	return func(f *Fields, opts DecodeOptions) error {
		if opts.CurrentScale == 0 || opts.CurrentScale == 1 {
			return nil
		}
		for _, name := range names {
			v, _ := f.Get(name)
			if v.Kind == KindDecimal {
				f.Set(name, DecimalValue(v.Decimal*opts.CurrentScale))
			}
		}
		return nil
	}
}

// capInsulation limits the reported insulation resistance to the configured
// display maximum. Internally meters store the measured value (roughly 185
// MOhm for open circuit) but displays cap it.
func capInsulation(name string) fixup {
	return func(f *Fields, opts DecodeOptions) error {
		if opts.InsulationCapMohm <= 0 {
			return nil
		}
		v, _ := f.Get(name)
		if v.Kind == KindDecimal && v.Decimal > opts.InsulationCapMohm {
			f.Set(name, DecimalValue(opts.InsulationCapMohm))
		}
		return nil
	}
}

// noResultSentinel maps a rescaled value of exactly zero to the "(no result)"
// marker. Zero continuity resistance means no connection, which companion
// software reports symbolically rather than as 0.0.
func noResultSentinel(name string) fixup {
	return func(f *Fields, _ DecodeOptions) error {
		v, _ := f.Get(name)
		if v.Kind == KindDecimal && v.Decimal == 0 {
			f.Set(name, NoResultValue())
		}
		return nil
	}
}

// userDataMeanings is the fixed table the four user-data mapping indexes
// resolve against.
var userDataMeanings = map[uint32]string{
	0: "Notes",
	1: "Asset Description",
	2: "Asset Group",
	3: "Make",
	4: "Model",
	5: "Serial No.",
}

// resolveUserDataMappings appends meaning1..meaning4 for the four mapping
// indexes, failing with a *LookupError when an index falls outside 0-5.
func resolveUserDataMappings(f *Fields, _ DecodeOptions) error {
	for i := 1; i <= 4; i++ {
		name := fmt.Sprintf("mapping%d", i)
		v, _ := f.Get(name)
		meaning, ok := userDataMeanings[v.Uint]
		if !ok {
			return &LookupError{Field: name, Index: v.Uint}
		}
		f.Set(fmt.Sprintf("meaning%d", i), TextValue(meaning))
	}
	return nil
}

// composeTimestamp folds the five visual-test clock fields into a single
// minute-precision "tested" timestamp. The meter records no timezone.
func composeTimestamp(f *Fields, _ DecodeOptions) error {
	hour, _ := f.Get("hour")
	minute, _ := f.Get("minute")
	day, _ := f.Get("day")
	month, _ := f.Get("month")
	year, _ := f.Get("year")
	f.Set("tested", TimeValue(time.Date(
		int(year.Uint), time.Month(month.Uint), int(day.Uint),
		int(hour.Uint), int(minute.Uint), 0, 0, time.UTC,
	)))
	return nil
}
