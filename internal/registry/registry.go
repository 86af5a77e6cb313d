// Package registry holds the static tables of known ACMI property names
// and whether each one is stored as text or as a number.
package registry

import "fmt"

// Class is the declared storage type of a property key.
type Class uint8

const (
	// Unknown keys are not in the table and default to text storage.
	Unknown Class = iota
	GlobalText
	GlobalNumeric
	ObjectText
	ObjectNumeric
)

func (c Class) String() string {
	switch c {
	case GlobalText:
		return "global-text"
	case GlobalNumeric:
		return "global-numeric"
	case ObjectText:
		return "object-text"
	case ObjectNumeric:
		return "object-numeric"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether values of this class must parse as floats.
func (c Class) IsNumeric() bool {
	return c == GlobalNumeric || c == ObjectNumeric
}

// Reserved keys handled by the codec rather than the tables.
const (
	TransformKey = "T"
	EventKey     = "Event"
)

var globalText = []string{
	"DataSource", "DataRecorder", "ReferenceTime", "RecordingTime", "Author",
	"Title", "Category", "Briefing", "Debriefing", "Comments", "MapId",
}

var globalNumeric = []string{
	"ReferenceLongitude", "ReferenceLatitude",
}

var objectText = append([]string{
	"Name", "Type", "AdditionalType", "Parent", "Next", "ShortName", "LongName",
	"FullName", "CallSign", "Registration", "Squawk", "ICAO24", "Pilot", "Group",
	"Country", "Coalition", "Color", "Shape", "Debug", "Label", "FocusedTarget",
	"LockedTarget",
}, numbered("LockedTarget", 9)...)

var objectNumeric = concat(
	[]string{
		"Importance", "Slot", "Disabled", "Visible", "Health", "Length", "Width",
		"Height", "Radius", "IAS", "CAS", "TAS", "Mach", "AltimeterSetting",
		"OnGround", "AOA", "AOS", "AGL", "HDG", "HDM", "Throttle", "Throttle2",
		"EngineRPM", "EngineRPM2", "NR", "NR2", "RotorRPM", "RotorRPM2",
		"Afterburner", "AirBrakes", "Flaps", "LandingGear", "LandingGearHandle",
		"Tailhook", "Parachute", "DragChute", "FuelWeight", "FuelVolume",
		"FuelFlowWeight", "FuelFlowVolume",
	},
	numbered("FuelWeight", 9),
	numbered("FuelVolume", 9),
	numbered("FuelFlowWeight", 8),
	numbered("FuelFlowVolume", 8),
	[]string{
		"RadarMode", "RadarAzimuth", "RadarElevation", "RadarRoll", "RadarRange",
		"RadarHorizontalBeamwidth", "RadarVerticalBeamwidth",
		"RadarRangeGateAzimuth", "RadarRangeGateElevation", "RadarRangeGateRoll",
		"RadarRangeGateMin", "RadarRangeGateMax",
		"RadarRangeGateHorizontalBeamwidth", "RadarRangeGateVerticalBeamwidth",
		"LockedTargetMode", "LockedTargetAzimuth", "LockedTargetElevation",
		"LockedTargetRange", "EngagementMode", "EngagementMode2",
		"EngagementRange", "EngagementRange2", "VerticalEngagementRange",
		"VerticalEngagementRange2", "RollControlInput", "PitchControlInput",
		"YawControlInput", "RollControlPosition", "PitchControlPosition",
		"YawControlPosition", "RollTrimTab", "PitchTrimTab", "YawTrimTab",
		"AileronLeft", "AileronRight", "Elevator", "Rudder",
		"LocalizerLateralDeviation", "GlideslopeVerticalDeviation",
		"LocalizerAngularDeviation", "GlideslopeAngularDeviation",
		"PilotHeadRoll", "PilotHeadPitch", "PilotHeadYaw", "PilotEyeGazePitch",
		"PilotEyeGazeYaw", "VerticalGForce", "LongitudinalGForce",
		"LateralGForce", "QNH", "WindDirection", "WindPitch", "WindSpeed",
		"TriggerPressed", "ENL", "HeartRate", "SpO2",
	},
)

var (
	globalTable = build(map[Class][]string{GlobalText: globalText, GlobalNumeric: globalNumeric})
	objectTable = build(map[Class][]string{ObjectText: objectText, ObjectNumeric: objectNumeric})
)

// Classify returns the class of an object property key.
func Classify(key string) Class {
	return objectTable[key]
}

// ClassifyGlobal returns the class of a global property key, or Unknown.
func ClassifyGlobal(key string) Class {
	return globalTable[key]
}

// IsGlobal reports whether key belongs to the global property table.
func IsGlobal(key string) bool {
	return globalTable[key] != Unknown
}

// Keys returns every registered key of the given class, in table order.
func Keys(c Class) []string {
	var src []string
	switch c {
	case GlobalText:
		src = globalText
	case GlobalNumeric:
		src = globalNumeric
	case ObjectText:
		src = objectText
	case ObjectNumeric:
		src = objectNumeric
	}
	return append([]string(nil), src...)
}

func numbered(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func build(classes map[Class][]string) map[string]Class {
	table := make(map[string]Class)
	for class, keys := range classes {
		for _, k := range keys {
			table[k] = class
		}
	}
	return table
}
