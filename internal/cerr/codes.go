package cerr

// Stable error codes referenced by CLI output and tests. Ranges follow the
// kind they belong to: E1xx validation, E2xx corrupt, E3xx not_found,
// E4xx unavailable, E5xx transport, E6xx exhausted, E7xx cancelled.
const (
	CodeValidationPrompt       = "E101"
	CodeValidationWorkflow     = "E102"
	CodeValidationPlaceholder  = "E103"
	CodeValidationConfig       = "E104"
	CodeArtifactValidation     = "E105"
	CodeStateCorrupted         = "E201"
	CodeChecksumMismatch       = "E202"
	CodeRecipeCorrupt          = "E203"
	CodeProjectNotFound        = "E301"
	CodeFeatureNotFound        = "E302"
	CodeRecipeNotFound         = "E303"
	CodeAgentUnavailable       = "E401"
	CodeLockHeld               = "E402"
	CodeRouterTransportFailed  = "E501"
	CodeRecipeFetchFailed      = "E502"
	CodeRouterExhausted        = "E601"
	CodeCircuitOpen            = "E602"
	CodeCancelledByUser        = "E701"
	CodeCancelledTimeout       = "E702"
)
