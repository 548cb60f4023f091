package types

// Status is a type for the lifecycle status of a persisted resource.
// It tracks whether a record should be included in queries, independent
// of any domain-specific state machine the record carries.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
