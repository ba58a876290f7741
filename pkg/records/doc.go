// Package records defines the data model flowing through the pipeline:
// raw rows as read from the exports, normalized customer and sale records,
// canonical entities with their lineage, and consolidated sales.
package records
