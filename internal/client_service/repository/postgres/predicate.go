package postgres

import (
	"fmt"
	"strings"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

const (
	clientAlias      = "c"
	phoneNumberAlias = "cpn"
)

// searchColumn is the qualified column a search field is matched against.
type searchColumn struct {
	alias  string
	column string
}

// searchColumns is the allowlist of searchable fields. Only these column
// names ever reach the query text.
var searchColumns = map[domain.SearchField]searchColumn{
	domain.SearchFieldFirstName:   {alias: clientAlias, column: "first_name"},
	domain.SearchFieldLastName:    {alias: clientAlias, column: "last_name"},
	domain.SearchFieldEmail:       {alias: clientAlias, column: "email"},
	domain.SearchFieldPhoneNumber: {alias: phoneNumberAlias, column: "phone_number"},
}

// SearchPredicate is a parameterized WHERE conjunction built from a SearchFilter.
type SearchPredicate struct {
	NeedsJoin bool                          // client_phone_number must be joined
	Aliases   map[domain.SearchField]string // table alias owning each filtered field
	Where     string                        // e.g. "c.last_name ILIKE $1 AND cpn.phone_number ILIKE $2"
	Args      []any
}

// BuildSearchPredicate composes one ILIKE clause per filter field, in
// domain.SearchFields order, with every pattern passed as a bound parameter.
func BuildSearchPredicate(filter domain.SearchFilter) (SearchPredicate, error) {
	if len(filter) == 0 {
		return SearchPredicate{}, domain.ErrEmptySearchFilter
	}
	for field := range filter {
		if _, ok := searchColumns[field]; !ok {
			return SearchPredicate{}, fmt.Errorf("%w: %q", domain.ErrUnknownSearchField, string(field))
		}
	}

	p := SearchPredicate{
		Aliases: make(map[domain.SearchField]string, len(filter)),
		Args:    make([]any, 0, len(filter)),
	}
	clauses := make([]string, 0, len(filter))
	for _, field := range domain.SearchFields {
		pattern, ok := filter[field]
		if !ok {
			continue
		}
		col := searchColumns[field]
		if col.alias == phoneNumberAlias {
			p.NeedsJoin = true
		}
		p.Aliases[field] = col.alias
		p.Args = append(p.Args, pattern)
		clauses = append(clauses, fmt.Sprintf("%s.%s ILIKE $%d", col.alias, col.column, len(p.Args)))
	}
	p.Where = strings.Join(clauses, " AND ")
	return p, nil
}

// SQL renders the ID-selecting search query for the predicate.
func (p SearchPredicate) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT DISTINCT c.id FROM client c")
	if p.NeedsJoin {
		b.WriteString(" JOIN client_phone_number cpn ON c.id = cpn.client_id")
	}
	b.WriteString(" WHERE ")
	b.WriteString(p.Where)
	return b.String()
}
