package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldYear          = "year"
	FieldStartYear     = "start_year"
	FieldScenario      = "scenario"
	FieldFilingStatus  = "filing_status"
	FieldCandidates    = "candidates"
	FieldScore         = "score"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentEngine     = "engine"
	ComponentConversion = "conversion"
	ComponentOptimizer  = "optimizer"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentTaxData    = "taxdata"
)
