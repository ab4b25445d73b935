package aggregate

import uuid "github.com/satori/go.uuid"

// NewID returns a random globally unique originator id.
func NewID() string {
	return uuid.NewV4().String()
}

// NamespacedID derives a stable originator id from a namespace and a
// name. The same inputs always yield the same id, which suits "index"
// aggregates whose identity is a deterministic function of their
// creation attributes.
func NamespacedID(namespace uuid.UUID, name string) string {
	return uuid.NewV5(namespace, name).String()
}

// Namespace builds a namespace UUID from an application-chosen label.
func Namespace(label string) uuid.UUID {
	return uuid.NewV5(uuid.NamespaceOID, label)
}
