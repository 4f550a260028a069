package store

import "fmt"

// Redis key layout, normative per spec.md §6.
func scraperKey(id string) string       { return fmt.Sprintf("scrapers:%s", id) }
func scraperIDsKey() string             { return "scraper_ids" }
func taskKey(id string) string          { return fmt.Sprintf("tasks:%s", id) }
func queueKey(priority string) string   { return fmt.Sprintf("queue:%s", priority) }
func byScraperKey(scraperID string) string {
	return fmt.Sprintf("tasks:by_scraper:%s", scraperID)
}
func leaseKey(name string) string       { return fmt.Sprintf("leases:%s", name) }
func logsKey(taskID string) string      { return fmt.Sprintf("logs:%s", taskID) }
func logsNextIDKey(taskID string) string { return fmt.Sprintf("logs:%s:next_id", taskID) }
