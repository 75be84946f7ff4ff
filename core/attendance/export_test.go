package attendance

import "time"

// SetRetryDelay shortens the backoff between read attempts in tests.
func (svc *Service) SetRetryDelay(d time.Duration) { svc.retryDelay = d }
