package models

import "errors"

// ErrNoSessionData means a session has no roster to rank
var ErrNoSessionData = errors.New("no session data")
