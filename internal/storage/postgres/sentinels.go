package postgres

import "errors"

// ErrAlreadyRecorded signals that CreateWebhook lost a first-writer
// race on the idempotency_key UNIQUE index; the caller must retry the
// handler, which then hits the replay path (§4.E step 4).
var ErrAlreadyRecorded = errors.New("webhook already recorded")
