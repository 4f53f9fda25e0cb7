package simulate

// Response corruption cases. The generator spreads participant answers
// across these so the scoring path sees every outcome class.
const (
	casePerfect = iota
	caseWrongExternal
	caseWrongDerived
	caseWrongMarker
	caseAllWrong
	caseMissingExternal
	caseMissingDerived
	caseMissingMarker

	responseCaseCount
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
)
