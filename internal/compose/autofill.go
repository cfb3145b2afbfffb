package compose

import "billmitra/backend/internal/domain"

// ApplyCandidate merges a selected suggestion into a line item and returns
// the updated item. It is pure and total: no candidate/item combination
// fails, and applying the same candidate twice equals applying it once.
//
// Field ownership rules, in order:
//   - description, classification code, GST rate and unit are machine-owned
//     and always taken from the candidate;
//   - rate is filled only while the item has no rate yet; a rate the user
//     typed is never overwritten by a selection;
//   - the print description is written only while still unset; any earlier
//     value, automatic or user-typed (including an empty string the user
//     deliberately cleared to), blocks automatic writes permanently;
//   - the template back-reference is kept only for template-origin
//     candidates and cleared otherwise.
func ApplyCandidate(item domain.LineItem, candidate domain.Candidate) domain.LineItem {
	item.Description = candidate.Name
	item.Code = candidate.Code
	item.GSTRate = candidate.GSTRate
	item.Unit = candidate.DefaultUnit

	if item.Rate == 0 && candidate.DefaultRate > 0 {
		item.Rate = candidate.DefaultRate
	}

	if item.PrintDescription.CanAutoFill() {
		printText := candidate.Description
		if printText == "" {
			printText = candidate.Name
		}
		item.PrintDescription = domain.AutoText(printText)
	}

	if candidate.Origin == domain.OriginUserTemplate {
		item.TemplateID = candidate.TemplateID
	} else {
		item.TemplateID = ""
	}

	// Selection resolves the search; the dropdown closes.
	item.Search = domain.SearchState{}

	return item
}
