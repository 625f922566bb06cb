package sss

// Version identifies which registry table is active for a stream.
type Version int

const (
	Version1 Version = 1
	Version2 Version = 2
)

// subrecordType binds a one-byte type code's human label, fixed layout and
// post-decode transform. Codes with no schema carry no payload bytes.
type subrecordType struct {
	label  string
	schema Schema
	fixup  fixup
}

// Sub-record layouts. Field widths reproduce the observed meter output byte
// for byte; do not reorder or resize.
var (
	visualSchema = Schema{
		{Name: "id", Kind: FieldText, Width: 16},
		{Name: "hour", Kind: FieldUint, Width: 1},
		{Name: "minute", Kind: FieldUint, Width: 1},
		{Name: "day", Kind: FieldUint, Width: 1},
		{Name: "month", Kind: FieldUint, Width: 1},
		{Name: "year", Kind: FieldUint, Width: 2},
		{Name: "site", Kind: FieldText, Width: 16},
		{Name: "location", Kind: FieldText, Width: 16},
		{Name: "tester", Kind: FieldText, Width: 11},
		{Name: "testcode1", Kind: FieldText, Width: 10},
		{Name: "testcode2", Kind: FieldText, Width: 11},
	}

	resistanceSchema = Schema{
		{Name: "resistance", Kind: FieldUint, Width: 2},
	}

	currentSchema = Schema{
		{Name: "current", Kind: FieldUint, Width: 2},
	}

	powerLeakSchema = Schema{
		{Name: "leakage", Kind: FieldUint, Width: 2},
		{Name: "load", Kind: FieldUint, Width: 2},
	}

	// Version-2 variants gain a leading pass byte; earth resistance also
	// carries a test-current byte.
	resistanceV2Schema = Schema{
		{Name: "current", Kind: FieldUint, Width: 1},
		{Name: "pass", Kind: FieldUint, Width: 1},
		{Name: "resistance", Kind: FieldUint, Width: 2},
	}

	passResistanceSchema = Schema{
		{Name: "pass", Kind: FieldUint, Width: 1},
		{Name: "resistance", Kind: FieldUint, Width: 2},
	}

	passCurrentSchema = Schema{
		{Name: "pass", Kind: FieldUint, Width: 1},
		{Name: "current", Kind: FieldUint, Width: 2},
	}

	passPowerLeakSchema = Schema{
		{Name: "pass", Kind: FieldUint, Width: 1},
		{Name: "leakage", Kind: FieldUint, Width: 2},
		{Name: "load", Kind: FieldUint, Width: 2},
	}

	userDataMappingSchema = Schema{
		{Name: "mapping1", Kind: FieldUint, Width: 1},
		{Name: "mapping2", Kind: FieldUint, Width: 1},
		{Name: "mapping3", Kind: FieldUint, Width: 1},
		{Name: "mapping4", Kind: FieldUint, Width: 1},
	}

	retestSchema = Schema{
		{Name: "nulls", Kind: FieldUint, Width: 1},
		{Name: "unknown", Kind: FieldUint, Width: 1},
		{Name: "frequency", Kind: FieldUint, Width: 1},
	}

	softwareVersionSchema = Schema{
		{Name: "serialnumber", Kind: FieldText, Width: 11},
		{Name: "firmware1", Kind: FieldUint, Width: 1},
		{Name: "firmware2", Kind: FieldUint, Width: 1},
		{Name: "firmware3", Kind: FieldUint, Width: 1},
	}

	userDataSchema = Schema{
		{Name: "line1", Kind: FieldText, Width: 21},
		{Name: "line2", Kind: FieldText, Width: 21},
		{Name: "line3", Kind: FieldText, Width: 21},
		{Name: "line4", Kind: FieldText, Width: 21},
	}
)

// typesV1 is the baseline registry. Never mutated at runtime.
var typesV1 = map[byte]subrecordType{
	0x01: {label: "Visual Pass (01)", schema: visualSchema, fixup: composeTimestamp},
	0x02: {label: "Visual Fail (02)", schema: visualSchema, fixup: composeTimestamp},
	0x10: {label: "Unknown (10)"},
	0xe0: {label: "User Data Mapping (E0)", schema: userDataMappingSchema, fixup: resolveUserDataMappings},
	0xe1: {label: "Retest (E1)", schema: retestSchema},
	0xf0: {label: "Overall Pass (F0)"},
	0xf1: {label: "Overall Fail (F1)"},
	0xf2: {label: "Earth Resistance (F2)", schema: resistanceSchema,
		fixup: chain(splitPassMagnitude("resistance"), rescaleFields("resistance"))},
	0xf3: {label: "Earth Insulation (F3)", schema: resistanceSchema,
		fixup: chain(splitPassMagnitude("resistance"), rescaleFields("resistance"), capInsulation("resistance"))},
	0xf4: {label: "Substitute Leakage (F4)", schema: currentSchema,
		fixup: chain(splitPassMagnitude("current"), rescaleFields("current"), scaleCurrent("current"))},
	0xf5: {label: "Flash Leakage (F5)", schema: currentSchema,
		fixup: chain(splitPassMagnitude("current"), rescaleFields("current"), scaleCurrent("current"))},
	0xf6: {label: "Load/Leakage (F6)", schema: powerLeakSchema,
		fixup: chain(rescaleFields("leakage", "load"), scaleCurrent("leakage", "load"))},
	0xf7: {label: "Flash Leakage (F7)", schema: currentSchema,
		fixup: chain(splitPassMagnitude("current"), rescaleFields("current"), scaleCurrent("current"))},
	0xf8: {label: "Continuity (F8)", schema: resistanceSchema,
		fixup: chain(splitPassMagnitude("resistance"), rescaleFields("resistance"), noResultSentinel("resistance"))},
	0xfa: {label: "Unknown (FA)"},
	0xfb: {label: "User Data (FB)", schema: userDataSchema},
	0xfe: {label: "Software Version (FE)", schema: softwareVersionSchema},
	0xff: {label: "End of Record (FF)"},
}

// typesV2 overlays typesV1 once a version-2-only visual code has been seen.
// Never mutated at runtime.
var typesV2 = map[byte]subrecordType{
	0x11: {label: "Visual Pass v2 (11)", schema: visualSchema, fixup: composeTimestamp},
	0x12: {label: "Visual Fail v2 (12)", schema: visualSchema, fixup: composeTimestamp},
	0xf2: {label: "Earth Resistance v2 (F2)", schema: resistanceV2Schema,
		fixup: chain(passBool("pass"), rescaleFields("resistance"))},
	0xf3: {label: "Earth Insulation v2 (F3)", schema: passResistanceSchema,
		fixup: chain(passBool("pass"), rescaleFields("resistance"), capInsulation("resistance"))},
	0xf4: {label: "Substitute Leakage v2 (F4)", schema: passCurrentSchema,
		fixup: chain(passBool("pass"), rescaleFields("current"), scaleCurrent("current"))},
	0xf5: {label: "Flash Leakage v2 (F5)", schema: passCurrentSchema,
		fixup: chain(passBool("pass"), rescaleFields("current"), scaleCurrent("current"))},
	0xf6: {label: "Load/Leakage v2 (F6)", schema: passPowerLeakSchema,
		fixup: chain(passBool("pass"), rescaleFields("leakage", "load"), scaleCurrent("leakage", "load"))},
	0xf7: {label: "Flash Leakage v2 (F7)", schema: passCurrentSchema,
		fixup: chain(passBool("pass"), rescaleFields("current"), scaleCurrent("current"))},
	0xf8: {label: "Continuity v2 (F8)", schema: passResistanceSchema,
		fixup: chain(passBool("pass"), rescaleFields("resistance"), noResultSentinel("resistance"))},
	0xf9: {label: "Lead Continuity Pass (F9)"},
}

// endOfRecord terminates a record's sub-record sequence.
const endOfRecord = 0xff

// upgradeCode reports whether a type code forces the one-way switch to the
// version-2 registry.
func upgradeCode(code byte) bool {
	return code == 0x11 || code == 0x12
}

// lookupType resolves a code against the active registry. Version-2 entries
// shadow version-1 entries for overlapping codes.
func lookupType(code byte, v Version) (subrecordType, bool) {
	if v >= Version2 {
		if t, ok := typesV2[code]; ok {
			return t, true
		}
	}
	t, ok := typesV1[code]
	return t, ok
}

// measurementCode reports whether a sub-record kind carries a measurement
// test identifier: the 0x10 marker and the 0xF0-0xFA result codes.
func measurementCode(code byte) bool {
	return code == 0x10 || (code >= 0xf0 && code <= 0xfa)
}
