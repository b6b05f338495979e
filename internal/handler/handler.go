// Package handler is the first layer after the router.
//
// It binds and validates requests using the validation package,
// calls the service layer and writes the responses. It acts as
// the interface between HTTP and the record-keeping logic.
package handler
