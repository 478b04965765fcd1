package report

import "errors"

var (
	ErrInvalidPublisherConfig = errors.New("invalid publisher configuration provided")
	ErrPublishFailed          = errors.New("failed to publish result rows")
)
