// Package metrics declares the prometheus instruments for the pipeline.
package metrics
