package dto

// PreviewCandidate is a person the operator wants to check before committing a response.
type PreviewCandidate struct {
	ID         string `json:"id" validate:"required"`
	NationalID string `json:"nationalId" validate:"notblank"`
	FirstName  string `json:"firstName" validate:"notblank"`
	LastName   string `json:"lastName" validate:"notblank"`
}

// PreviewRequest wraps the candidates of a preview call.
type PreviewRequest struct {
	Candidates []PreviewCandidate `json:"candidates" validate:"required,min=1,dive"`
}

// PreviewResult reports registry hits for one candidate without persisting anything.
type PreviewResult struct {
	ID                string  `json:"id"`
	NationalID        string  `json:"nationalId"`
	FirstName         string  `json:"firstName"`
	LastName          string  `json:"lastName"`
	Found             bool    `json:"found"`
	CriminalGroup     *string `json:"criminalGroup,omitempty"`
	CriminalStructure *string `json:"criminalStructure,omitempty"`
	Observations      *string `json:"observations,omitempty"`
}
