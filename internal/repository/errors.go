// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific error strings.
package repository

import "errors"

// ErrEmailExists is returned when registration hits the unique email
// index. Handlers translate this into an HTTP 400 response.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a user id does not resolve to a row.
var ErrUserNotFound = errors.New("user not found")

// ErrRepairNotFound is returned when a repair id does not resolve to a
// row. Handlers translate this into an HTTP 404 response.
var ErrRepairNotFound = errors.New("repair not found")

// ErrCustomerNotFound is returned when creating a repair whose customer
// reference does not resolve to an existing user.
var ErrCustomerNotFound = errors.New("customer does not exist")
