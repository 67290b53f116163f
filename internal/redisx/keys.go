package redisx

import "time"

const (
	// Lease per record per pass: lease:{pass}:{booking_id} -> token pemegang
	KeyRecordLease = "lease:%s:%s"

	// Dedup notifikasi: dedup:{kind}:{booking_id} (kind = scored | released)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLLease = 2 * time.Minute
	TTLDedup = 48 * time.Hour
)
