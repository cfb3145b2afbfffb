package domain

// DraftView is the client-facing snapshot of a composition draft: header,
// items, the running tax preview, and whatever suggestion candidates are
// currently open for one of the items.
type DraftView struct {
	ID            string      `json:"id"`
	Surface       string      `json:"surface"`
	Header        DraftHeader `json:"header"`
	Items         []LineItem  `json:"items"`
	Preview       TaxPreview  `json:"preview"`
	Candidates    []Candidate `json:"candidates,omitempty"`
	CandidatesFor int         `json:"candidates_for"`
}
