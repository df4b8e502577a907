package inference

import "errors"

var errEmptyTagKey = errors.New("inference: tag key must not be empty")
