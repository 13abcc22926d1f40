package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNotConnected = errors.New("transport not connected")
	ErrWSDisconnect = errors.New("websocket disconnected")
	ErrSubscribe    = errors.New("subscription failed")
	ErrMalformed    = errors.New("malformed upstream payload")
)
