package booking

const (
	TopicBookingCreated = "booking.created"
	TopicBookingScored  = "booking.scored"
	TopicEscrowReleased = "booking.escrow.released"
)

// Partition key = booking_id, supaya semua event 1 booking maintain urutan.
func PartitionKey(bookingID string) []byte { return []byte(bookingID) }
