// Package events contains the audit events emitted after catalog mutations.
package events

import (
	"encoding/json"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const (
	ProductsSubjectPrefix  = "catalog.products."
	ProductCreatedSubject  = ProductsSubjectPrefix + ActionCreated
	ProductUpdatedSubject  = ProductsSubjectPrefix + ActionUpdated
	ProductDeletedSubject  = ProductsSubjectPrefix + ActionDeleted
	ProductsSubjectPattern = ProductsSubjectPrefix + "*"
)

// ProductChangedEvent records a confirmed mutation of a catalog product.
type ProductChangedEvent struct {
	Action      string    `json:"action"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e ProductChangedEvent) Subject() string {
	return ProductsSubjectPrefix + e.Action
}

func (e ProductChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
