package config

import (
	"fmt"
	"io"
)

var keyDocs = map[string]string{
	"initial_urls":                   "list of strings - starting URLs, offered to the waiting room first",
	"barber_delay_seconds":           "[low, high] floats - range of the haircut delay before fetching a page",
	"producer_delay_seconds":         "[low, high] floats - random extra delay before offering a new customer",
	"keywords":                       "list of strings - keywords to count on every fetched page",
	"max_customers":                  "int - customers admitted before the shop closes for the day (0 = no limit)",
	"max_queue_size":                 "int - number of chairs in the waiting room",
	"enable_wakeup_from_stored_urls": "bool - offer links discovered on served pages as new customers",
	"new_customer_probability":       "float - probability that a stored link is offered on a producer tick",
	"producer_interval":              "float - seconds between producer ticks",
	"max_stored_links":               "int - discovered links kept for later, oldest dropped first",
	"fetch.timeout_seconds":          "float - timeout of a single page request",
	"fetch.max_retries":              "int - attempts per page on transport errors and 429 responses",
	"fetch.user_agent":               "string - User-Agent header sent with every request",
}

// Explain writes a description of every config key to w.
func Explain(w io.Writer) {
	fmt.Fprintln(w, "Config file structure:")
	for _, key := range sortedKeys() {
		fmt.Fprintf(w, "  %s: %s\n", key, keyDocs[key])
	}
}
