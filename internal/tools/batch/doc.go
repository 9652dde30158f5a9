// Package batch runs a tool operation over several items, such as
// accounts, and reports per-item outcomes.
//
// Items run concurrently with a bounded limit; a failing item is reported
// in its Result and never aborts the rest of the batch.
package batch
