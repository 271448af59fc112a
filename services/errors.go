package services

import "errors"

var (
	// ErrEmptyCart rejects checkout of a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity rejects negative quantities; zero means remove.
	ErrInvalidQuantity = errors.New("quantity must not be negative")

	// ErrOrderNumberExhausted is returned when every order number attempt
	// collided. Safe to retry the whole checkout.
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")
)
