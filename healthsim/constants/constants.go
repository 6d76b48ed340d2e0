package constants

// This is set during compilation. See the release pipeline.
var Version = "latest"

// Export output formats accepted by the API and CLI.
const (
	FormatFHIR  = "fhir"
	FormatX12   = "x12"
	FormatHL7   = "hl7v2"
	FormatNCPDP = "ncpdp"
	FormatCSV   = "csv"
)

// Population types that a cohort export can generate.
const (
	PopulationPatient  = "patient"
	PopulationMember   = "member"
	PopulationRxMember = "rx_member"
)

// Well known test routing identifiers used throughout fixtures and docs.
const (
	TestBIN   = "610014"
	TestPCN   = "RXTEST"
	TestGroup = "GRP001"
)

const (
	ExpectedJobsHeader  = "X-Progress"
	ContentLocation     = "Content-Location"
	FHIRJSONContentType = "application/fhir+json"
	JSONContentType     = "application/json"
)

const TestAPIKey = "local-dev-api-key"
