package connector

// List is a reminders list
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is a reminder. Dates are Unix seconds, zero when unset.
type Task struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Completed        bool    `json:"completed"`
	Notes            string  `json:"notes"`
	CreationDate     float64 `json:"creationDate"`
	CompletionDate   float64 `json:"completionDate"`
	LastModifiedDate float64 `json:"lastModifiedDate"`
}

// Result is the reply of a mutating verb
type Result struct {
	Success *bool   `json:"success,omitempty"`
	Error   *string `json:"error,omitempty"`
	ID      *string `json:"id,omitempty"`
}

// Unsupported is the result reported where no connector is available
func Unsupported(reason string) Result {
	success := false
	return Result{Success: &success, Error: &reason}
}
