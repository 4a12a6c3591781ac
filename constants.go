package ringd

import "github.com/behrlich/ringd/internal/constants"

// Re-export the tunables internal packages default to, so callers can
// reference them without importing internal/constants directly.
const (
	DefaultQueueDepth        = constants.DefaultQueueDepth
	SQSpaceMargin            = constants.SQSpaceMargin
	HTTPMaxRequestBufferSize = constants.HTTPMaxRequestBufferSize
	AIOBufferSize            = constants.AIOBufferSize
	SmallCachePathMax        = constants.SmallCachePathMax
	DefaultJobQueueDepth     = constants.DefaultJobQueueDepth
)
