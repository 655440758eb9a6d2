package repository

import "strings"

// Persisted key layout. Legacy aliases (booking:, supplier-job:) are read
// and purged but never written by current handlers.
const (
	jobsListKey      = "jobs:list"
	suppliersSetKey  = "suppliers:list"
	notifyQueueKey   = "notify:queue"
	notifyDeadLetter = "notify:deadletter"
)

func jobKey(id string) string            { return "job:" + id }
func jobHistoryKey(id string) string     { return "job:" + id + ":history" }
func messagesKey(ref string) string      { return "messages:" + ref }
func regoJobsKey(rego string) string     { return "rego:" + strings.ToUpper(rego) + ":jobs" }
func supplierKey(name string) string     { return "supplier:" + name }
func portalCodeKey(code string) string   { return "supplier:portal:" + code }
func supplierLinkKey(code string) string { return "supplier-link:" + code }
func legacyBookingKey(id string) string  { return "booking:" + id }
func legacyJobKey(id string) string      { return "supplier-job:" + id }

// NotifyQueueKey and NotifyDeadLetterKey expose the retry worker lists.
func NotifyQueueKey() string      { return notifyQueueKey }
func NotifyDeadLetterKey() string { return notifyDeadLetter }
