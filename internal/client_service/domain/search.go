package domain

// SearchField names a column clients can be searched by.
type SearchField string

const (
	SearchFieldFirstName   SearchField = "first_name"
	SearchFieldLastName    SearchField = "last_name"
	SearchFieldEmail       SearchField = "email"
	SearchFieldPhoneNumber SearchField = "phone_number"
)

// SearchFields lists the recognized search fields in clause order.
var SearchFields = []SearchField{
	SearchFieldFirstName,
	SearchFieldLastName,
	SearchFieldEmail,
	SearchFieldPhoneNumber,
}

// ParseSearchField resolves a raw field name, reporting false for unknown names.
func ParseSearchField(name string) (SearchField, bool) {
	for _, f := range SearchFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// SearchFilter maps fields to case-insensitive ILIKE patterns.
// Wildcards ("%", "_") are supplied by the caller; a pattern without them is an exact match.
type SearchFilter map[SearchField]string
