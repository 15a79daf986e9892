package premises

import "errors"

var ErrPremiseNotFound = errors.New("premise not found")
