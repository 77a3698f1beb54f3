package service

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrNoLines           = errors.New("at least one line is required")
	ErrLastLine          = errors.New("cannot delete the last supply line")
	ErrMissingProduct    = errors.New("product id is required")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrMissingExternalID = errors.New("external order id is required")
	ErrMissingWarehouse  = errors.New("warehouse id is required")
)
