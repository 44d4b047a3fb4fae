package postgres

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var statementsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "client_repository",
		Name:      "statements_total",
		Help:      "Total SQL statements issued by the client repository.",
	},
	[]string{"statement"}, // e.g. "select_clients", "insert_phone_numbers"
)

// Statement labels.
const (
	stmtInsertClient       = "insert_client"
	stmtInsertPhoneNumbers = "insert_phone_numbers"
	stmtInsertPhoneNumber  = "insert_phone_number"
	stmtSelectClient       = "select_client"
	stmtSelectPhoneNumbers = "select_phone_numbers"
	stmtSelectClients      = "select_clients"
	stmtSelectClientPhones = "select_clients_phone_numbers"
	stmtUpdateClient       = "update_client"
	stmtDeletePhoneNumbers = "delete_phone_numbers"
	stmtDeletePhoneNumber  = "delete_phone_number"
	stmtDeleteClient       = "delete_client"
	stmtLockClient         = "lock_client"
	stmtSearchClients      = "search_clients"
	stmtSchema             = "schema"
)
