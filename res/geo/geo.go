package geo

import (
	"context"
	"fmt"
	"math"
)

// LocationVerifier gates operational transitions on the actor's physical location
type LocationVerifier interface {
	// Verify returns an error when (lat, lng) is not acceptably close to (targetLat, targetLng)
	Verify(ctx context.Context, lat, lng, targetLat, targetLng float64) error
}

const earthRadiusMeters = 6371000.0

// RadiusVerifier accepts locations within a fixed radius of the target
type RadiusVerifier struct {
	RadiusMeters float64
}

// NewRadiusVerifier creates a LocationVerifier with the given acceptance radius
func NewRadiusVerifier(radiusMeters float64) *RadiusVerifier {
	return &RadiusVerifier{RadiusMeters: radiusMeters}
}

func (v *RadiusVerifier) Verify(ctx context.Context, lat, lng, targetLat, targetLng float64) error {
	distance := haversineMeters(lat, lng, targetLat, targetLng)
	if distance > v.RadiusMeters {
		return fmt.Errorf("location is %.0fm from the service address (max %.0fm)", distance, v.RadiusMeters)
	}
	return nil
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
