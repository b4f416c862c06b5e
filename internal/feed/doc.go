// Package feed implements the ranking engine: keyword classification of
// stream events, decay scoring, the tiered refresh scheduler, retention
// reaping, and cursor-paginated feed composition.
package feed
