package enums

import "fmt"

// AuditAction names a state-changing action recorded in the audit log.
type AuditAction string

const (
	AuditReservationCreate  AuditAction = "reservation_create"
	AuditReservationCancel  AuditAction = "reservation_cancel"
	AuditReservationConvert AuditAction = "reservation_convert"
	AuditSaleCreate         AuditAction = "sale_create"
	AuditSaleVoid           AuditAction = "sale_void"
	AuditVehicleStageChange AuditAction = "vehicle_stage_change"
)

var validAuditActions = []AuditAction{
	AuditReservationCreate,
	AuditReservationCancel,
	AuditReservationConvert,
	AuditSaleCreate,
	AuditSaleVoid,
	AuditVehicleStageChange,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
