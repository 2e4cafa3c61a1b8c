// Package services holds the application services shared by the ecgctl
// commands and the HTTP status server: dataset inspection, record lookup
// and the end-to-end export pipeline.
package services
