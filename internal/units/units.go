// Package units provides shared constants and validation for temperature units
package units

// Unit constants
const (
	Celsius    = "c"
	Fahrenheit = "f"
	Kelvin     = "k"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Celsius, Fahrenheit, Kelvin}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "c, f, k"
}

// ConvertTemperature converts a temperature from degrees Celsius to the target units.
// The sensor reports and the pipeline stores temperatures in °C.
func ConvertTemperature(tempC float64, targetUnits string) float64 {
	switch targetUnits {
	case Fahrenheit:
		return tempC*9.0/5.0 + 32.0
	case Kelvin:
		return tempC + 273.15
	case Celsius:
		return tempC // no conversion needed
	default:
		return tempC // default to °C if unknown unit
	}
}
