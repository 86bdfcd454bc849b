// Package domain models regional water-accounting records.
//
// # Data Sources
//
// Four delimited text files feed the dashboard, one per source
// classification:
//
//	Dam file         reservoir balance per dam and water year  -> Surface (or Transfer)
//	Groundwater file metered extraction per well and water year -> Groundwater
//	Transfer file    inter-basin transfer volumes              -> Transfer
//	Wastewater file  treated volume per plant                  -> Wastewater
//
// Headers are bilingual. The dam and groundwater exports use Persian column
// names (e.g. "حجم ابتدای سال آبی", "برداشت واقعي"), the transfer and
// wastewater files use English ones. The dam header contains two distinct
// "total" columns that differ only in the kaf code point: "كل" (U+0643,
// total input) and "کل" (U+06A9, total outflow). Headers are therefore
// matched exactly after trimming whitespace and a leading BOM.
//
// # Schemas
//
// Every source is described by a [Schema] in sources.yaml: the expected
// header, a rename map onto canonical column names, and the ordered
// extraction column candidates. Each candidate declares its unit
// explicitly, so conversion never depends on the magnitude of the data:
//
//	m3   cubic meters, divided by 1,000,000
//	mcm  million cubic meters, used as-is
//
// # Unknown Values
//
// Categorical fields (usage type, county, water year, renewable status,
// well attributes) are never empty after normalization. A missing column or
// a blank cell becomes [Unknown]. Legacy exports also carry the Persian
// sentinel "نامشخص" and the pandas artifacts "nan" and "None"; all of them
// are treated as unknown by [IsUnknown].
//
// # Numbers
//
// Numeric cells may use Persian (U+06F0-U+06F9) or Arabic-Indic
// (U+0660-U+0669) digits, the Arabic thousands separator "٬" and decimal
// separator "٫", or ASCII commas as thousands separators. Cells that still
// fail to parse are treated as missing. Missing extraction is zero.
//
// # Classification
//
// Rows from the dam file are Surface unless the dam name is listed in the
// schema's transfer_names, in which case they are Transfer. Groundwater
// rows are named "منبع زیرزمینی <ID>" after their subbasin.
package domain
