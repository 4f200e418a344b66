// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The library service manages the document catalogue, the pipeline
// service runs extraction through clustering, the retrieval service
// answers similarity queries, and the worker drains the processing
// queue in the background.
package services
