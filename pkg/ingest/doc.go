// Package ingest reads the delimited legacy exports into raw records.
//
// Every source system has its own delimiter and text encoding. Files are
// decoded to UTF-8 (a UTF-8 byte order mark is tolerated), split with the
// configured delimiter and returned fully in memory: matching never starts
// before all inputs of a store have been read.
package ingest
