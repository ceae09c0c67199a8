package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateVehicle     OutboxAggregateType = "vehicle"
	AggregateReservation OutboxAggregateType = "reservation"
	AggregateSale        OutboxAggregateType = "sale"
)

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}
