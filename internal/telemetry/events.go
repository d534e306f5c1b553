package telemetry

// Assessment lifecycle event names.
const (
	EventFormIssued            = "form_issued"
	EventAssessmentSubmitted   = "assessment_submitted"
	EventAssessmentReprocessed = "assessment_reprocessed"
	EventNarrativeDegraded     = "narrative_degraded"
)
