package kafka_client

import "time"

const (
	MAX_RETRIES  = 5
	RETRY_DELAY  = 2 * time.Second
	POLL_TIMEOUT = 200 * time.Millisecond

	ASSIGN_TIMEOUT       = 30 * time.Second
	WATERMARK_TIMEOUT_MS = 5000
)
