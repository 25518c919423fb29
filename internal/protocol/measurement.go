package protocol

import "fmt"

const (
	// TemperatureInvalid is the smallest whole-degree value meaning "no reading".
	TemperatureInvalid = 129
	// HumidityInvalid means "no reading".
	HumidityInvalid = 255
)

// Temperature is a reading split into whole degrees and hundredths, the way
// the fixed-point protocol carries it. For negative values Whole is the floor
// and Hundredths is still positive: -2.34 is {-3, 66}.
type Temperature struct {
	Whole      int
	Hundredths int
}

func (t Temperature) Valid() bool {
	return t.Whole < TemperatureInvalid
}

// Celsius recombines the reading as degrees.
func (t Temperature) Celsius() float64 {
	return float64(t.Whole) + float64(t.Hundredths)/100
}

func (t Temperature) String() string {
	return fmt.Sprintf("%.2f", t.Celsius())
}

// Measurement is one probe's reading from one frame.
type Measurement struct {
	Device      DeviceID
	Probe       int
	Temperature Temperature
	Humidity    uint8
}

func (m Measurement) HumidityValid() bool {
	return m.Humidity != HumidityInvalid
}

// AnyValid reports whether at least one field carries a reading.
func (m Measurement) AnyValid() bool {
	return m.Temperature.Valid() || m.HumidityValid()
}
