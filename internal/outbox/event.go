package outbox

// Domain event types. The Kafka topic name equals the event type.
const (
	EventAppointmentBooked    = "appointment.booked.v1"
	EventAppointmentCancelled = "appointment.cancelled.v1"
)

// Event is the domain event envelope written to the outbox table in the
// same transaction as the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
