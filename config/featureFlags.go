package config

import (
	"os"
	"strings"
)

// StrictStockGuard enables conditional catalog debits: a decrement that would
// push clone_stock/seed_stock below zero is rejected at the write layer
// instead of trusting the caller's earlier read.
//
// Set via env:
// - STRICT_STOCK_GUARD=false to disable (defaults to enabled)
func StrictStockGuard() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_STOCK_GUARD")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// BlockLogsWhileDrying rejects log-entry inserts once a cycle entered drying.
// The reference UI only hides the button; this closes the gap server-side.
//
// Set via env:
// - BLOCK_LOGS_WHILE_DRYING=true
func BlockLogsWhileDrying() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("BLOCK_LOGS_WHILE_DRYING")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
