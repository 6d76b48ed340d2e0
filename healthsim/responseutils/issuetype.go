package responseutils

// Definition: A code that describes the type of issue.
// See: http://hl7.org/fhir/issue-type
const (
	Invalid       = "invalid"
	Required      = "required"
	Security      = "security"
	Unknown       = "unknown"
	Expired       = "expired"
	Forbidden     = "forbidden"
	Processing    = "processing"
	Not_supported = "not-supported"
	Not_found     = "not-found"
	Deleted       = "deleted"
	Business_rule = "business-rule"
	Exception     = "exception"
	Timeout       = "timeout"
	Informational = "informational"
)

// Definition: How the issue affects the success of the action.
// Defining URL: http://hl7.org/fhir/issue-severity
const (
	Fatal       = "fatal"
	Error       = "error"
	Warning     = "warning"
	Information = "information"
)
