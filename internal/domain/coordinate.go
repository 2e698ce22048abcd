package domain

import "fmt"

// Coordinate is a WGS84 position. Zero values are legal coordinates, so
// presence must be tracked separately by callers (pointer fields on request
// types).
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects out-of-range coordinates. Invalid values must be caught
// before any adapter dispatch, not after.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return ErrMalformedToolArguments(fmt.Sprintf("latitude %v out of range [-90, 90]", c.Latitude))
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return ErrMalformedToolArguments(fmt.Sprintf("longitude %v out of range [-180, 180]", c.Longitude))
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%g, %g", c.Latitude, c.Longitude)
}
