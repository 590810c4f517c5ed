package research

import "fmt"

// NotFoundError reports an unknown process id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("research process %s not found", e.ID)
}

// StateError reports an operation attempted from a status that does not
// allow it.
type StateError struct {
	ID     string
	Status Status
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s process %s in status %s", e.Op, e.ID, e.Status)
}

// ConfigurationError reports a missing or invalid service setting detected
// at startup.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Msg)
}
