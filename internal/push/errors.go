package push

import "errors"

var ErrDeliveryFailed = errors.New("call notification delivery failed")
