package service

import "errors"

var (
	ErrNoSnapshot       = errors.New("no snapshot loaded")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrTemplateNotFound = errors.New("package not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrNameRequired     = errors.New("lesson name is required")
	ErrTimeRequired     = errors.New("start and end time are required")
	ErrDateRequired     = errors.New("date is required")
)
