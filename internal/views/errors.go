package views

import "errors"

var (
	// ErrProductNotFound means the targeted product is no longer in the catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrClosed is returned by flows that already finished or were cancelled.
	ErrClosed = errors.New("flow closed")
)

// User-facing messages.
const (
	MsgSaveFailed       = "Failed to save product. Please try again."
	MsgDeleteFailed     = "Failed to delete product. Please try again."
	MsgProductGone      = "This product no longer exists. The list has been refreshed."
	MsgLoadFailed       = "Failed to load products."
	MsgSubmitInProgress = "Your changes are already being saved."
)
