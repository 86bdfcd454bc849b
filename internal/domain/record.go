package domain

import (
	"time"
)

// SourceType is the classification of a water record.
type SourceType string

const (
	Surface     SourceType = "Surface"
	Groundwater SourceType = "Groundwater"
	Transfer    SourceType = "Transfer"
	Wastewater  SourceType = "Wastewater"
)

// SourceTypes lists every classification in display order.
var SourceTypes = []SourceType{Surface, Groundwater, Transfer, Wastewater}

// Valid reports whether s is one of the four known classifications.
func (s SourceType) Valid() bool {
	switch s {
	case Surface, Groundwater, Transfer, Wastewater:
		return true
	default:
		return false
	}
}

// Unknown is the sentinel for a categorical value that is missing in the source.
const Unknown = "Unknown"

// Renewable status values used by the source files.
const (
	Renewable    = "تجدیدپذیر"
	NonRenewable = "تجدیدناپذیر"
)

// Smart meter values after normalization.
const (
	SmartMeterYes = "Yes"
	SmartMeterNo  = "No"
)

// Record is a single normalized water use record. ExtractionMCM is always
// expressed in million cubic meters.
type Record struct {
	ID              string     `json:"id"`
	SourceType      SourceType `json:"source_type"`
	SourceName      string     `json:"source_name"`
	ExtractionMCM   float64    `json:"extraction_mcm"`
	UsageType       string     `json:"usage_type"`
	County          string     `json:"county"`
	WaterYear       string     `json:"water_year"`
	RenewableStatus string     `json:"renewable_status"`

	// Reservoir is set for rows loaded from the dam file.
	Reservoir *Reservoir `json:"reservoir,omitempty"`
	// Well is set for rows loaded from the groundwater file.
	Well *Well `json:"well,omitempty"`
}

// Reservoir holds the balance terms of a dam for one water year, in MCM
// (levels in meters).
type Reservoir struct {
	VolumeStart       float64 `json:"volume_start"`
	VolumeEnd         float64 `json:"volume_end"`
	LevelStart        float64 `json:"level_start"`
	LevelEnd          float64 `json:"level_end"`
	Inflow            float64 `json:"inflow"`
	OtherInput        float64 `json:"other_input"`
	TotalInput        float64 `json:"total_input"`
	Leakage           float64 `json:"leakage"`
	PumpingOut        float64 `json:"pumping_out"`
	Drainage          float64 `json:"drainage"`
	Evaporation       float64 `json:"evaporation"`
	SedimentDischarge float64 `json:"sediment_discharge"`
	IntakeDischarge   float64 `json:"intake_discharge"`
	SpillwayDischarge float64 `json:"spillway_discharge"`
	TotalOutflow      float64 `json:"total_outflow"`
}

// BalanceComponent names a reservoir balance term shown on the dashboard.
type BalanceComponent string

const (
	ComponentInflow            BalanceComponent = "Inflow"
	ComponentLeakage           BalanceComponent = "Leakage"
	ComponentPumpingOut        BalanceComponent = "Pumping_Out"
	ComponentDrainage          BalanceComponent = "Drainage"
	ComponentEvaporation       BalanceComponent = "Evaporation"
	ComponentSedimentDischarge BalanceComponent = "Sediment_Discharge"
	ComponentIntakeDischarge   BalanceComponent = "Intake_Discharge"
	ComponentSpillwayDischarge BalanceComponent = "Spillway_Discharge"
	ComponentExtraction        BalanceComponent = "Extraction_MCM"
)

// BalanceComponents lists the balance terms in chart order.
var BalanceComponents = []BalanceComponent{
	ComponentInflow,
	ComponentLeakage,
	ComponentPumpingOut,
	ComponentDrainage,
	ComponentEvaporation,
	ComponentSedimentDischarge,
	ComponentIntakeDischarge,
	ComponentSpillwayDischarge,
	ComponentExtraction,
}

// Component returns the value of a balance term for the record. Records
// without reservoir data contribute zero except for extraction.
func (r Record) Component(c BalanceComponent) float64 {
	if c == ComponentExtraction {
		return r.ExtractionMCM
	}
	if r.Reservoir == nil {
		return 0
	}
	res := r.Reservoir
	switch c {
	case ComponentInflow:
		return res.Inflow
	case ComponentLeakage:
		return res.Leakage
	case ComponentPumpingOut:
		return res.PumpingOut
	case ComponentDrainage:
		return res.Drainage
	case ComponentEvaporation:
		return res.Evaporation
	case ComponentSedimentDischarge:
		return res.SedimentDischarge
	case ComponentIntakeDischarge:
		return res.IntakeDischarge
	case ComponentSpillwayDischarge:
		return res.SpillwayDischarge
	default:
		return 0
	}
}

// Well holds groundwater-specific attributes. Optional measurements are nil
// when the source cell is missing or not numeric.
type Well struct {
	WellID         string   `json:"well_id"`
	StudyArea      string   `json:"study_area"`
	Department     string   `json:"department"`
	WellType       string   `json:"well_type"`
	WellStatus     string   `json:"well_status"`
	PowerSource    string   `json:"power_source"`
	SmartMeter     string   `json:"smart_meter"`
	DepthM         *float64 `json:"depth_m,omitempty"`
	FlowRateLS     *float64 `json:"flow_rate_ls,omitempty"`
	OperatingHours *float64 `json:"operating_hours,omitempty"`
	XUTM           *float64 `json:"x_utm,omitempty"`
	YUTM           *float64 `json:"y_utm,omitempty"`
}

// Table is a delimited text file split into a header and string rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of name in the header, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Stamp returns the current time from the package clock.
func Stamp() time.Time {
	return clock.Now()
}
