package core

import (
	"time"

	"github.com/google/uuid"
)

type RequestID string

func NewRequestID() RequestID {
	return RequestID("req_" + timestamp() + "_" + uuid.NewString()[:8])
}

func timestamp() string {
	return time.Now().UTC().Format("20060102T150405.000000000")
}
