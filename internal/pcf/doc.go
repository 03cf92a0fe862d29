// Package pcf computes product carbon footprint traces.
//
// A Catalog is an in-memory snapshot of products, their emission records,
// reference factor tables, BOM line items and cross-supplier sharing states.
// The Aggregator turns a product of that snapshot into an EmissionTrace tree,
// broken down per lifecycle stage. The package does no I/O; the repository
// layer fills a Catalog and the service layer decides who may ask for which
// product.
package pcf
