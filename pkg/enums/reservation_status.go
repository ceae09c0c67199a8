package enums

import "fmt"

// ReservationStatus tracks the lifecycle of a deposit-backed hold.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusConverted ReservationStatus = "converted"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusActive,
	ReservationStatusConverted,
	ReservationStatusCancelled,
	ReservationStatusExpired,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
