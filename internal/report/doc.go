// Package report renders run progress and the end-of-run summary for people, and exports the summary as YAML.
package report
